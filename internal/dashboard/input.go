package dashboard

import (
	"math"
	"strconv"
	"strings"

	"github.com/23skdu/smellsense/internal/core"
	"github.com/23skdu/smellsense/internal/signature"
	"github.com/23skdu/smellsense/internal/similarity"
)

// Step is the slider granularity for VOC levels.
const Step = 0.01

const stepsPerUnit = 1 / Step

// Quantize rounds v to the nearest slider step.
func Quantize(v float64) float64 {
	return math.Round(v*stepsPerUnit) / stepsPerUnit
}

// ParseLevels builds a fingerprint from slider-style values keyed by VOC name
// (case-insensitive). Missing names take the comparer's defaults. Unknown
// names, non-numeric values and levels outside [0,1] are rejected before
// rounding.
func (c *Comparer) ParseLevels(values map[string]string) ([]float64, error) {
	names := signature.VOCNames()
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[strings.ToLower(n)] = i
	}

	levels := c.Defaults()
	for key, raw := range values {
		i, ok := index[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return nil, core.NewInvalidArgumentError(key, "unknown VOC")
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, core.NewInvalidArgumentError(names[i], "not a number: "+raw)
		}
		if err := similarity.ValidateLevel(names[i], v); err != nil {
			return nil, err
		}
		levels[i] = Quantize(v)
	}
	return levels, nil
}
