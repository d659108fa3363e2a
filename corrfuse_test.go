package corrfuse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/testutil"
)

// Three collinear locations 1 apart keep the kernel weights easy to verify
// by hand.
func abcLocs() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		2, 0, 0,
	})
}

func bcLocs() *mat.Dense {
	return mat.NewDense(2, 3, []float64{
		1, 0, 0,
		2, 0, 0,
	})
}

func TestNewSubjectCanonicalizes(t *testing.T) {
	// Rows arrive reversed; the correlation matrix must be permuted to the
	// canonical (sorted) location order.
	locations := mat.NewDense(2, 3, []float64{
		5, 0, 0,
		1, 0, 0,
	})
	corr := mat.NewDense(2, 2, []float64{
		1, 0.3,
		0.3, 1,
	})

	sub, err := NewSubject(corr, locations)
	require.NoError(t, err)

	assert.Equal(t, 1.0, sub.Locs().At(0).X)
	assert.Equal(t, 5.0, sub.Locs().At(1).X)
	assert.InDelta(t, 0.3, sub.Corr().At(0, 1), 1e-12)
}

func TestNewSubjectShapeMismatch(t *testing.T) {
	corr := mat.NewDense(2, 2, []float64{1, 0.3, 0.3, 1})
	locations := mat.NewDense(3, 3, nil)

	_, err := NewSubject(corr, locations)
	var shapeErr *ErrCorrShape
	require.ErrorAs(t, err, &shapeErr)
}

func TestSubjectFromSeries(t *testing.T) {
	rng := testutil.NewRNG(42)
	series := rng.Series(200, 3)

	sub, err := SubjectFromSeries(series, abcLocs())
	require.NoError(t, err)

	assert.Equal(t, 3, sub.Locs().Len())
	assert.InDelta(t, 1.0, sub.Corr().At(0, 0), 1e-12)
	assert.InDelta(t, sub.Corr().At(1, 0), sub.Corr().At(0, 1), 1e-12)
	assert.Greater(t, sub.Corr().At(0, 1), -1.0)
	assert.Less(t, sub.Corr().At(0, 1), 1.0)
}

func TestSubjectFromSeriesTooShort(t *testing.T) {
	series := mat.NewDense(1, 3, nil)
	_, err := SubjectFromSeries(series, abcLocs())
	var seriesErr *ErrSeriesShape
	require.ErrorAs(t, err, &seriesErr)
}

func TestNewEmptyModel(t *testing.T) {
	m, err := New(abcLocs())
	require.NoError(t, err)

	assert.Equal(t, 3, m.Locs().Len())
	assert.Equal(t, 0, m.NSubjects())

	corr := m.Correlation(false)
	assert.InDelta(t, 1.0, corr.At(0, 0), 1e-12)
	assert.InDelta(t, 0.0, corr.At(0, 1), 1e-12)
}

func TestNewFromSubjectsRequiresData(t *testing.T) {
	_, err := NewFromSubjects(nil)
	assert.ErrorIs(t, err, ErrNoSubjects)
}

// Two subjects, one covering all three locations and one covering the last
// two exactly. On the shared pair both carry weight one, so the fused model
// must hold the plain average of their z-transformed correlations.
func TestNewFromSubjectsWeightedAverage(t *testing.T) {
	s1, err := NewSubject(mat.NewDense(3, 3, []float64{
		1, 0.5, 0.2,
		0.5, 1, 0.1,
		0.2, 0.1, 1,
	}), abcLocs())
	require.NoError(t, err)

	s2, err := NewSubject(mat.NewDense(2, 2, []float64{
		1, 0.4,
		0.4, 1,
	}), bcLocs())
	require.NoError(t, err)

	m, err := NewFromSubjects([]*Subject{s1, s2})
	require.NoError(t, err)

	assert.Equal(t, 2, m.NSubjects())
	assert.Equal(t, 3, m.Locs().Len())

	corr := m.Correlation(false)

	// Pair (B, C) is observed exactly by both subjects.
	wantBC := math.Tanh((math.Atanh(0.1) + math.Atanh(0.4)) / 2)
	assert.InDelta(t, wantBC, corr.At(1, 2), 1e-9)
	assert.InDelta(t, wantBC, corr.At(2, 1), 1e-9)

	// Pair (A, B): subject 1 contributes with weight one; subject 2 only
	// reaches A through the kernel from C, at weight exp(-d_AC^2/(2w^2)).
	wAC := math.Exp(-4.0 / (2 * 20 * 20))
	wantAB := math.Tanh((math.Atanh(0.5) + wAC*math.Atanh(0.4)) / (1 + wAC))
	assert.InDelta(t, wantAB, corr.At(0, 1), 1e-9)

	// Pair (A, C): subject 2 reaches A through B.
	wAB := math.Exp(-1.0 / (2 * 20 * 20))
	wantAC := math.Tanh((math.Atanh(0.2) + wAB*math.Atanh(0.4)) / (1 + wAB))
	assert.InDelta(t, wantAC, corr.At(0, 2), 1e-9)
}

func TestMergedCommutative(t *testing.T) {
	rng := testutil.NewRNG(7)

	s1, err := NewSubject(rng.Correlation(3), abcLocs())
	require.NoError(t, err)
	s2, err := NewSubject(rng.Correlation(2), bcLocs())
	require.NoError(t, err)

	m1, err := NewFromSubjects([]*Subject{s1})
	require.NoError(t, err)
	m2, err := NewFromSubjects([]*Subject{s2})
	require.NoError(t, err)

	ab, err := m1.Merged(m2)
	require.NoError(t, err)
	ba, err := m2.Merged(m1)
	require.NoError(t, err)

	assert.Equal(t, 2, ab.NSubjects())
	assert.Equal(t, 2, ba.NSubjects())
	require.True(t, ab.Locs().Equal(ba.Locs()))

	ca, cb := ab.Correlation(false), ba.Correlation(false)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, ca.At(i, j), cb.At(i, j), 1e-9, "cell %d,%d", i, j)
		}
	}
}

func TestMergedSelfDoublesDenominator(t *testing.T) {
	s, err := NewSubject(mat.NewDense(2, 2, []float64{1, 0.5, 0.5, 1}), bcLocs())
	require.NoError(t, err)
	m, err := NewFromSubjects([]*Subject{s})
	require.NoError(t, err)

	sum, err := m.Merged(m)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.NSubjects())
	assert.InDelta(t, math.Log(2), sum.Accumulator().Den.At(0, 1), 1e-12)
	assert.InDelta(t, 0.5, sum.Correlation(false).At(0, 1), 1e-12)
}

func TestUpdateSwapsAtomically(t *testing.T) {
	s1, err := NewSubject(mat.NewDense(2, 2, []float64{1, 0.5, 0.5, 1}), bcLocs())
	require.NoError(t, err)
	m, err := NewFromSubjects([]*Subject{s1})
	require.NoError(t, err)

	s2, err := NewSubject(mat.NewDense(3, 3, []float64{
		1, 0.2, 0.2,
		0.2, 1, 0.2,
		0.2, 0.2, 1,
	}), abcLocs())
	require.NoError(t, err)
	other, err := NewFromSubjects([]*Subject{s2})
	require.NoError(t, err)

	require.NoError(t, m.Update(other))
	assert.Equal(t, 2, m.NSubjects())
	assert.Equal(t, 3, m.Locs().Len())
}

func TestUpdateMergesMetaLeftWins(t *testing.T) {
	m1, err := New(bcLocs(), WithMeta(map[string]any{"site": "left", "task": "rest"}))
	require.NoError(t, err)
	m2, err := New(bcLocs(), WithMeta(map[string]any{"site": "right", "montage": "bipolar"}))
	require.NoError(t, err)

	require.NoError(t, m1.Update(m2))

	meta := m1.Meta()
	assert.Equal(t, "left", meta["site"])
	assert.Equal(t, "rest", meta["task"])
	assert.Equal(t, "bipolar", meta["montage"])
}

func TestAbsorbSubjectExpandsLocations(t *testing.T) {
	m, err := New(bcLocs())
	require.NoError(t, err)

	s, err := NewSubject(mat.NewDense(3, 3, []float64{
		1, 0.3, 0.3,
		0.3, 1, 0.3,
		0.3, 0.3, 1,
	}), abcLocs())
	require.NoError(t, err)

	require.NoError(t, m.AbsorbSubject(s))
	assert.Equal(t, 1, m.NSubjects())
	assert.Equal(t, 3, m.Locs().Len())
	assert.InDelta(t, 0.3, m.Correlation(false).At(1, 2), 1e-9)

	assert.ErrorIs(t, m.AbsorbSubject(nil), ErrNoSubjects)
}

func TestSlice(t *testing.T) {
	s, err := NewSubject(mat.NewDense(3, 3, []float64{
		1, 0.5, 0.2,
		0.5, 1, 0.1,
		0.2, 0.1, 1,
	}), abcLocs())
	require.NoError(t, err)
	m, err := NewFromSubjects([]*Subject{s})
	require.NoError(t, err)

	sub, err := m.Slice([]int{0, 2})
	require.NoError(t, err)

	assert.Equal(t, 2, sub.Locs().Len())
	assert.Equal(t, 1, sub.NSubjects())
	assert.InDelta(t, 0.2, sub.Correlation(false).At(0, 1), 1e-12)

	_, err = m.Slice([]int{5})
	assert.Error(t, err)
}

func TestModelString(t *testing.T) {
	m, err := New(bcLocs(), WithRBFWidth(15))
	require.NoError(t, err)
	assert.Contains(t, m.String(), "2 locations")
	assert.Contains(t, m.String(), "width=15")
}

func TestBasicMetricsCollector(t *testing.T) {
	metrics := &BasicMetricsCollector{}

	s, err := NewSubject(mat.NewDense(2, 2, []float64{1, 0.5, 0.5, 1}), bcLocs())
	require.NoError(t, err)
	m, err := NewFromSubjects([]*Subject{s}, WithMetricsCollector(metrics))
	require.NoError(t, err)

	require.NoError(t, m.SetLocs(abcLocs(), false))

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.UpdateCount)
	assert.Equal(t, int64(1), stats.RetargetCount)
	assert.Equal(t, int64(1), stats.RetargetBlurred)
	assert.Zero(t, stats.UpdateErrors)
}
