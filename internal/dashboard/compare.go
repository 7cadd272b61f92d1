// Package dashboard turns a fingerprint into the full result record shown
// to a user: reference table, radar polygon, per-signature scores and the
// closest match.
package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/23skdu/smellsense/internal/core"
	"github.com/23skdu/smellsense/internal/metrics"
	"github.com/23skdu/smellsense/internal/signature"
	"github.com/23skdu/smellsense/internal/similarity"
)

// RadarPoint is one vertex of the radar polygon.
type RadarPoint struct {
	Theta string  `json:"theta"`
	R     float64 `json:"r"`
}

// Radar is the closed polygon of a fingerprint on a fixed [0,1] radial axis.
type Radar struct {
	Points    []RadarPoint `json:"points"`
	AxisRange [2]float64   `json:"axis_range"`
}

// Result is the response to a single comparison.
type Result struct {
	Table      signature.Table    `json:"table"`
	UserVector []float64          `json:"user_vector"`
	Radar      Radar              `json:"radar"`
	Scores     []similarity.Match `json:"scores"`
	BestMatch  string             `json:"best_match"`
	BestScore  float64            `json:"best_score"`
	ScoreText  string             `json:"score_text"`
}

// Comparer scores fingerprints against a fixed signature store. It holds no
// per-request state and is safe for concurrent use.
type Comparer struct {
	store  *signature.Store
	logger zerolog.Logger
}

// NewComparer creates a Comparer over store.
func NewComparer(store *signature.Store, logger zerolog.Logger) (*Comparer, error) {
	if store.Len() == 0 {
		return nil, core.NewEmptyStoreError("new_comparer")
	}
	metrics.SignaturesLoaded.Set(float64(store.Len()))
	return &Comparer{store: store, logger: logger}, nil
}

// Store returns the signature store backing the comparer.
func (c *Comparer) Store() *signature.Store {
	return c.store
}

// Defaults returns the initial slider levels: the Healthy Breath signature,
// or the first signature when the store has none by that name.
func (c *Comparer) Defaults() []float64 {
	if sig, ok := c.store.Lookup(signature.HealthyBreath); ok {
		return sig.Levels
	}
	return c.store.Signatures()[0].Levels
}

// Compare validates user and builds the full result record.
func (c *Comparer) Compare(ctx context.Context, user []float64) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.ComparisonDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := similarity.Validate(user); err != nil {
		metrics.ComparisonsTotal.WithLabelValues("invalid").Inc()
		c.logger.Debug().Err(err).Floats64("levels", user).Msg("Rejected fingerprint")
		return nil, err
	}

	scores, err := similarity.Score(user, c.store)
	if err != nil {
		metrics.ComparisonsTotal.WithLabelValues("error").Inc()
		c.logger.Error().Err(err).Msg("Failed to score fingerprint")
		return nil, err
	}
	best, err := similarity.Best(scores)
	if err != nil {
		metrics.ComparisonsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	vec := make([]float64, len(user))
	copy(vec, user)

	res := &Result{
		Table:      c.store.Table(),
		UserVector: vec,
		Radar:      NewRadar(vec),
		Scores:     scores,
		BestMatch:  best.Label,
		BestScore:  best.Score,
		ScoreText:  similarity.Percent(best.Score),
	}

	metrics.ComparisonsTotal.WithLabelValues("ok").Inc()
	metrics.BestMatchTotal.WithLabelValues(best.Label).Inc()
	metrics.BestMatchScore.Observe(best.Score)
	c.logger.Debug().
		Str("best_match", best.Label).
		Str("score", res.ScoreText).
		Msg("Fingerprint compared")

	return res, nil
}

// NewRadar builds the radar polygon for levels, repeating the first vertex at
// the end to close the shape.
func NewRadar(levels []float64) Radar {
	names := signature.VOCNames()
	r := Radar{
		Points:    make([]RadarPoint, 0, len(levels)+1),
		AxisRange: [2]float64{0, 1},
	}
	for i, v := range levels {
		if i >= len(names) {
			break
		}
		r.Points = append(r.Points, RadarPoint{Theta: names[i], R: v})
	}
	if len(r.Points) > 0 {
		r.Points = append(r.Points, r.Points[0])
	}
	return r
}
