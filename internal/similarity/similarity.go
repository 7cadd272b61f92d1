// Package similarity scores VOC fingerprints against disease signatures
// using one minus the normalized L1 (Manhattan) distance.
package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/23skdu/smellsense/internal/core"
	"github.com/23skdu/smellsense/internal/signature"
)

// Match is a signature label with its similarity score in [0,1].
type Match struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Similarity returns 1 - sum(|a[i]-b[i]|)/len(a). Vectors must have equal,
// non-zero length. Values outside [0,1] are evaluated as-is; use Validate at
// input boundaries.
func Similarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, core.NewDimensionMismatchError(len(b), len(a))
	}
	if len(a) == 0 {
		return 0, core.NewInvalidArgumentError("vector", "cannot score empty vectors")
	}
	return 1 - floats.Distance(a, b, 1)/float64(len(a)), nil
}

// Score computes the similarity of user against every signature, in store order.
func Score(user []float64, store *signature.Store) ([]Match, error) {
	if store.Len() == 0 {
		return nil, core.NewEmptyStoreError("score")
	}

	matches := make([]Match, 0, store.Len())
	var err error
	store.Each(func(sig signature.Signature) bool {
		var s float64
		s, err = Similarity(user, sig.Levels)
		if err != nil {
			err = fmt.Errorf("signature %q: %w", sig.Label, err)
			return false
		}
		matches = append(matches, Match{Label: sig.Label, Score: s})
		return true
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Best returns the highest-scoring match. Ties go to the earliest entry.
func Best(matches []Match) (Match, error) {
	if len(matches) == 0 {
		return Match{}, core.NewEmptyStoreError("best_match")
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	return best, nil
}

// BestMatch scores user against store and selects the closest signature.
// Ties resolve to the signature that appears first in store order.
func BestMatch(user []float64, store *signature.Store) (Match, error) {
	if store.Len() == 0 {
		return Match{}, core.NewEmptyStoreError("best_match")
	}
	matches, err := Score(user, store)
	if err != nil {
		return Match{}, err
	}
	return Best(matches)
}

// Validate checks that v is a complete fingerprint with every level in [0,1].
func Validate(v []float64) error {
	if len(v) != signature.Dimensions {
		return core.NewDimensionMismatchError(signature.Dimensions, len(v))
	}
	names := signature.VOCNames()
	for i, x := range v {
		if err := ValidateLevel(names[i], x); err != nil {
			return err
		}
	}
	return nil
}

// ValidateLevel checks a single VOC level. Callers that round input must
// check the raw value first so nothing outside [0,1] is rounded into range.
func ValidateLevel(name string, x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 || x > 1 {
		return core.NewOutOfRangeError(name, x)
	}
	return nil
}

// Percent renders a score as a percentage with one decimal place.
func Percent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}
