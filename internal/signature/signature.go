// Package signature holds the fixed VOC dimension set and the read-only
// store of disease reference vectors.
package signature

import (
	"fmt"
	"math"

	"github.com/23skdu/smellsense/internal/core"
)

// Dimensions is the number of VOC levels in every fingerprint.
const Dimensions = 5

// HealthyBreath is the label of the baseline signature used for slider defaults.
const HealthyBreath = "Healthy Breath"

// vocNames is index-aligned with every vector in the system.
var vocNames = [Dimensions]string{"Acetone", "Isoprene", "Ethanol", "Ammonia", "Methane"}

// VOCNames returns the ordered VOC names.
func VOCNames() []string {
	out := make([]string, Dimensions)
	copy(out, vocNames[:])
	return out
}

// Signature is a disease label and its reference VOC levels.
type Signature struct {
	Label  string    `json:"label"`
	Levels []float64 `json:"levels"`
}

func (s Signature) clone() Signature {
	levels := make([]float64, len(s.Levels))
	copy(levels, s.Levels)
	return Signature{Label: s.Label, Levels: levels}
}

// Store is an ordered, immutable collection of signatures. Iteration order
// is insertion order and is the tie-break order for best-match selection.
type Store struct {
	sigs    []Signature
	byLabel map[string]int
}

// New validates sigs and builds a Store preserving their order.
func New(sigs ...Signature) (*Store, error) {
	s := &Store{
		sigs:    make([]Signature, 0, len(sigs)),
		byLabel: make(map[string]int, len(sigs)),
	}
	for _, sig := range sigs {
		if sig.Label == "" {
			return nil, core.NewInvalidArgumentError("label", "signature label cannot be empty")
		}
		if _, dup := s.byLabel[sig.Label]; dup {
			return nil, core.NewInvalidArgumentError("label", fmt.Sprintf("duplicate signature %q", sig.Label))
		}
		if len(sig.Levels) != Dimensions {
			return nil, fmt.Errorf("signature %q: %w", sig.Label, core.NewDimensionMismatchError(Dimensions, len(sig.Levels)))
		}
		for i, v := range sig.Levels {
			if math.IsNaN(v) || v < 0 || v > 1 {
				return nil, fmt.Errorf("signature %q: %w", sig.Label, core.NewOutOfRangeError(vocNames[i], v))
			}
		}
		s.byLabel[sig.Label] = len(s.sigs)
		s.sigs = append(s.sigs, sig.clone())
	}
	return s, nil
}

// MustNew is like New but panics on invalid input. Intended for package-level tables.
func MustNew(sigs ...Signature) *Store {
	s, err := New(sigs...)
	if err != nil {
		panic(err)
	}
	return s
}

var defaultStore = MustNew(
	Signature{Label: HealthyBreath, Levels: []float64{0.2, 0.3, 0.1, 0.2, 0.2}},
	Signature{Label: "Asthma", Levels: []float64{0.2, 0.8, 0.1, 0.3, 0.3}},
	Signature{Label: "Diabetes", Levels: []float64{0.9, 0.3, 0.2, 0.4, 0.4}},
	Signature{Label: "Lung Cancer", Levels: []float64{0.4, 0.2, 0.5, 0.6, 0.6}},
)

// Default returns the built-in disease signature table. The returned store
// is shared and safe for concurrent use.
func Default() *Store {
	return defaultStore
}

// Len returns the number of signatures. A nil store is empty.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sigs)
}

// Labels returns the signature labels in store order.
func (s *Store) Labels() []string {
	out := make([]string, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, s.sigs[i].Label)
	}
	return out
}

// Signatures returns a deep copy of every signature in store order.
func (s *Store) Signatures() []Signature {
	out := make([]Signature, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, s.sigs[i].clone())
	}
	return out
}

// Lookup returns a copy of the signature with the given label.
func (s *Store) Lookup(label string) (Signature, bool) {
	if s == nil {
		return Signature{}, false
	}
	idx, ok := s.byLabel[label]
	if !ok {
		return Signature{}, false
	}
	return s.sigs[idx].clone(), true
}

// Each calls fn for every signature in store order until fn returns false.
// fn must not retain or modify Levels.
func (s *Store) Each(fn func(Signature) bool) {
	for i := 0; i < s.Len(); i++ {
		if !fn(s.sigs[i]) {
			return
		}
	}
}
