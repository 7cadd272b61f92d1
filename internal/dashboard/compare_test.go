package dashboard

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/smellsense/internal/core"
	"github.com/23skdu/smellsense/internal/logging"
	"github.com/23skdu/smellsense/internal/metrics"
	"github.com/23skdu/smellsense/internal/signature"
)

func newTestComparer(t *testing.T) *Comparer {
	t.Helper()
	c, err := NewComparer(signature.Default(), logging.DiscardLogger())
	require.NoError(t, err)
	return c
}

func TestNewComparer_EmptyStore(t *testing.T) {
	_, err := NewComparer(signature.MustNew(), logging.DiscardLogger())
	var emptyErr *core.ErrEmptyStore
	require.ErrorAs(t, err, &emptyErr)
}

func TestDefaults(t *testing.T) {
	c := newTestComparer(t)
	assert.Equal(t, []float64{0.2, 0.3, 0.1, 0.2, 0.2}, c.Defaults())

	// Without a Healthy Breath entry the first signature is used
	other, err := NewComparer(signature.MustNew(
		signature.Signature{Label: "Asthma", Levels: []float64{0.2, 0.8, 0.1, 0.3, 0.3}},
	), logging.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.8, 0.1, 0.3, 0.3}, other.Defaults())
}

func TestCompare_DefaultFingerprint(t *testing.T) {
	c := newTestComparer(t)
	okBefore := testutil.ToFloat64(metrics.ComparisonsTotal.WithLabelValues("ok"))

	res, err := c.Compare(context.Background(), c.Defaults())
	require.NoError(t, err)

	assert.Equal(t, "Healthy Breath", res.BestMatch)
	assert.Equal(t, 1.0, res.BestScore)
	assert.Equal(t, "100.0%", res.ScoreText)
	assert.Len(t, res.Scores, 4)
	assert.Len(t, res.Table.Rows, 4)
	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.ComparisonsTotal.WithLabelValues("ok")))
}

func TestCompare_AllOnes(t *testing.T) {
	c := newTestComparer(t)
	res, err := c.Compare(context.Background(), []float64{1, 1, 1, 1, 1})
	require.NoError(t, err)

	assert.Equal(t, "Lung Cancer", res.BestMatch)
	assert.InDelta(t, 0.46, res.BestScore, 1e-9)
	assert.Equal(t, "46.0%", res.ScoreText)
}

func TestCompare_DoesNotAliasInput(t *testing.T) {
	c := newTestComparer(t)
	user := []float64{0.5, 0.5, 0.5, 0.5, 0.5}
	res, err := c.Compare(context.Background(), user)
	require.NoError(t, err)

	user[0] = 0.9
	assert.Equal(t, 0.5, res.UserVector[0])
	assert.Equal(t, 0.5, res.Radar.Points[0].R)
}

func TestCompare_RejectsInvalid(t *testing.T) {
	c := newTestComparer(t)
	invalidBefore := testutil.ToFloat64(metrics.ComparisonsTotal.WithLabelValues("invalid"))

	tests := []struct {
		name string
		vec  []float64
	}{
		{"short", []float64{0.1, 0.2}},
		{"long", []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}},
		{"empty", nil},
		{"above range", []float64{0.1, 0.2, 0.3, 0.4, 1.5}},
		{"below range", []float64{-0.1, 0.2, 0.3, 0.4, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Compare(context.Background(), tt.vec)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, core.IsValidation(err))
		})
	}
	assert.Equal(t, invalidBefore+float64(len(tests)), testutil.ToFloat64(metrics.ComparisonsTotal.WithLabelValues("invalid")))
}

func TestCompare_CanceledContext(t *testing.T) {
	c := newTestComparer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Compare(ctx, c.Defaults())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRadar_ClosedPolygon(t *testing.T) {
	r := NewRadar([]float64{0.1, 0.2, 0.3, 0.4, 0.5})
	require.Len(t, r.Points, 6)
	assert.Equal(t, r.Points[0], r.Points[5])
	assert.Equal(t, RadarPoint{Theta: "Acetone", R: 0.1}, r.Points[0])
	assert.Equal(t, RadarPoint{Theta: "Methane", R: 0.5}, r.Points[4])
	assert.Equal(t, [2]float64{0, 1}, r.AxisRange)

	assert.Empty(t, NewRadar(nil).Points)
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, 0.29, Quantize(0.29))
	assert.Equal(t, 0.3, Quantize(0.304))
	assert.Equal(t, 0.31, Quantize(0.306))
	assert.Equal(t, 1.0, Quantize(0.999))
	assert.Equal(t, 0.0, Quantize(0.004))
}

func TestParseLevels(t *testing.T) {
	c := newTestComparer(t)

	levels, err := c.ParseLevels(map[string]string{"acetone": "0.9", " Methane ": "0.456"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.3, 0.1, 0.2, 0.46}, levels)

	levels, err = c.ParseLevels(nil)
	require.NoError(t, err)
	assert.Equal(t, c.Defaults(), levels)

	_, err = c.ParseLevels(map[string]string{"benzene": "0.1"})
	assert.True(t, core.IsValidation(err))

	_, err = c.ParseLevels(map[string]string{"ethanol": "lots"})
	assert.True(t, core.IsValidation(err))

	levels, err = c.ParseLevels(map[string]string{"ammonia": "1", "ethanol": "0"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.3, 0, 1, 0.2}, levels)
}

func TestParseLevels_RangeCheckedBeforeRounding(t *testing.T) {
	c := newTestComparer(t)

	tests := []struct {
		name  string
		input map[string]string
		field string
	}{
		{"far above", map[string]string{"ammonia": "3"}, "Ammonia"},
		{"just above", map[string]string{"acetone": "1.004"}, "Acetone"},
		{"just below", map[string]string{"methane": "-0.004"}, "Methane"},
		{"nan", map[string]string{"isoprene": "NaN"}, "Isoprene"},
		{"inf", map[string]string{"ethanol": "+Inf"}, "Ethanol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels, err := c.ParseLevels(tt.input)
			var rangeErr *core.ErrOutOfRange
			require.ErrorAs(t, err, &rangeErr)
			assert.Equal(t, tt.field, rangeErr.Name)
			assert.Nil(t, levels)
		})
	}
}
