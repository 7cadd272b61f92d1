package similarity

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/smellsense/internal/core"
	"github.com/23skdu/smellsense/internal/signature"
)

const eps = 1e-9

func randomVector(r *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = r.Float64()
	}
	return v
}

func TestSimilarity_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		a := randomVector(r, signature.Dimensions)
		b := randomVector(r, signature.Dimensions)

		ab, err := Similarity(a, b)
		require.NoError(t, err)
		ba, err := Similarity(b, a)
		require.NoError(t, err)
		aa, err := Similarity(a, a)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
		assert.Equal(t, ab, ba, "similarity must be symmetric")
		assert.Equal(t, 1.0, aa, "similarity with itself must be 1")
	}
}

func TestSimilarity_MaximalDivergence(t *testing.T) {
	s, err := Similarity([]float64{0, 0, 0, 0, 0}, []float64{1, 1, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)
}

func TestSimilarity_KnownValue(t *testing.T) {
	s, err := Similarity([]float64{0.5, 0.25}, []float64{0, 0.75})
	require.NoError(t, err)
	assert.Equal(t, 0.5, s)
}

func TestSimilarity_LengthMismatch(t *testing.T) {
	_, err := Similarity([]float64{0.1, 0.2, 0.3, 0.4}, []float64{0.1, 0.2, 0.3, 0.4, 0.5})
	require.Error(t, err)

	var dimErr *core.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 5, dimErr.Expected)
	assert.Equal(t, 4, dimErr.Actual)
}

func TestSimilarity_EmptyVectors(t *testing.T) {
	s, err := Similarity(nil, []float64{})
	require.Error(t, err)
	assert.False(t, math.IsNaN(s))
	assert.True(t, core.IsValidation(err))
}

func TestSimilarity_OutOfRangeStillEvaluates(t *testing.T) {
	s, err := Similarity([]float64{2}, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, -1.0, s)
}

func TestBestMatch_ExactSignatures(t *testing.T) {
	store := signature.Default()
	for _, sig := range store.Signatures() {
		t.Run(sig.Label, func(t *testing.T) {
			m, err := BestMatch(sig.Levels, store)
			require.NoError(t, err)
			assert.Equal(t, sig.Label, m.Label)
			assert.Equal(t, 1.0, m.Score)
		})
	}
}

func TestBestMatch_HealthyAndDiabetes(t *testing.T) {
	m, err := BestMatch([]float64{0.2, 0.3, 0.1, 0.2, 0.2}, signature.Default())
	require.NoError(t, err)
	assert.Equal(t, Match{Label: "Healthy Breath", Score: 1.0}, m)

	m, err = BestMatch([]float64{0.9, 0.3, 0.2, 0.4, 0.4}, signature.Default())
	require.NoError(t, err)
	assert.Equal(t, Match{Label: "Diabetes", Score: 1.0}, m)
}

func TestScore_AllOnes(t *testing.T) {
	matches, err := Score([]float64{1, 1, 1, 1, 1}, signature.Default())
	require.NoError(t, err)
	require.Len(t, matches, 4)

	want := []Match{
		{Label: "Healthy Breath", Score: 0.2},
		{Label: "Asthma", Score: 0.34},
		{Label: "Diabetes", Score: 0.44},
		{Label: "Lung Cancer", Score: 0.46},
	}
	for i, w := range want {
		assert.Equal(t, w.Label, matches[i].Label)
		assert.InDelta(t, w.Score, matches[i].Score, eps, w.Label)
	}

	best, err := BestMatch([]float64{1, 1, 1, 1, 1}, signature.Default())
	require.NoError(t, err)
	assert.Equal(t, "Lung Cancer", best.Label)
	assert.Equal(t, "46.0%", Percent(best.Score))
}

func TestBestMatch_TieBreaksOnStoreOrder(t *testing.T) {
	low := signature.Signature{Label: "Low", Levels: []float64{0, 0, 0, 0, 0}}
	mid := signature.Signature{Label: "Mid", Levels: []float64{0.5, 0.5, 0.5, 0.5, 0.5}}
	user := []float64{0.25, 0.25, 0.25, 0.25, 0.25}

	m, err := BestMatch(user, signature.MustNew(low, mid))
	require.NoError(t, err)
	assert.Equal(t, "Low", m.Label)
	assert.Equal(t, 0.75, m.Score)

	m, err = BestMatch(user, signature.MustNew(mid, low))
	require.NoError(t, err)
	assert.Equal(t, "Mid", m.Label)
}

func TestBestMatch_EmptyStore(t *testing.T) {
	var emptyErr *core.ErrEmptyStore

	_, err := BestMatch([]float64{0, 0, 0, 0, 0}, signature.MustNew())
	require.ErrorAs(t, err, &emptyErr)

	_, err = BestMatch([]float64{0, 0, 0, 0, 0}, nil)
	require.ErrorAs(t, err, &emptyErr)

	_, err = Best(nil)
	require.ErrorAs(t, err, &emptyErr)
}

func TestBestMatch_WrongDimension(t *testing.T) {
	_, err := BestMatch([]float64{0.1, 0.2, 0.3}, signature.Default())
	var dimErr *core.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 5, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Actual)
	assert.Contains(t, err.Error(), "Healthy Breath")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]float64{0, 0.5, 1, 0.01, 0.99}))

	var dimErr *core.ErrDimensionMismatch
	assert.ErrorAs(t, Validate([]float64{0.1}), &dimErr)
	assert.ErrorAs(t, Validate(nil), &dimErr)

	tests := []struct {
		name  string
		vec   []float64
		field string
	}{
		{"above", []float64{0, 0, 0, 1.01, 0}, "Ammonia"},
		{"below", []float64{-0.01, 0, 0, 0, 0}, "Acetone"},
		{"nan", []float64{0, math.NaN(), 0, 0, 0}, "Isoprene"},
		{"inf", []float64{0, 0, 0, 0, math.Inf(1)}, "Methane"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rangeErr *core.ErrOutOfRange
			require.ErrorAs(t, Validate(tt.vec), &rangeErr)
			assert.Equal(t, tt.field, rangeErr.Name)
		})
	}
}

func TestValidateLevel(t *testing.T) {
	assert.NoError(t, ValidateLevel("Acetone", 0))
	assert.NoError(t, ValidateLevel("Acetone", 1))

	for _, x := range []float64{1.004, -0.004, math.NaN(), math.Inf(-1)} {
		var rangeErr *core.ErrOutOfRange
		require.ErrorAs(t, ValidateLevel("Acetone", x), &rangeErr, "%g", x)
		assert.Equal(t, "Acetone", rangeErr.Name)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "100.0%", Percent(1))
	assert.Equal(t, "0.0%", Percent(0))
	assert.Equal(t, "83.4%", Percent(0.834))
}
