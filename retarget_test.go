package corrfuse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func modelABC(t *testing.T) *Model {
	t.Helper()
	s, err := NewSubject(mat.NewDense(3, 3, []float64{
		1, 0.5, 0.2,
		0.5, 1, 0.1,
		0.2, 0.1, 1,
	}), abcLocs())
	require.NoError(t, err)
	m, err := NewFromSubjects([]*Subject{s})
	require.NoError(t, err)
	return m
}

func TestWithLocsSameSet(t *testing.T) {
	m := modelABC(t)

	same, err := m.WithLocs(abcLocs(), false)
	require.NoError(t, err)

	assert.True(t, same.Locs().Equal(m.Locs()))
	assert.InDelta(t, 0.5, same.Correlation(false).At(0, 1), 1e-12)
}

func TestWithLocsSubsetIsExact(t *testing.T) {
	m := modelABC(t)

	sub, err := m.WithLocs(bcLocs(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, sub.Locs().Len())
	// Subset retargets reindex; no blur involved.
	assert.InDelta(t, 0.1, sub.Correlation(false).At(0, 1), 1e-12)
	assert.Equal(t, 1, sub.NSubjects())
}

func TestWithLocsSupersetThenSubsetRoundTrip(t *testing.T) {
	m := modelABC(t)
	orig := m.Correlation(false)

	wide := mat.NewDense(5, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		2, 0, 0,
		0, 7, 0,
		0, 0, 7,
	})
	widened, err := m.WithLocs(wide, false)
	require.NoError(t, err)
	assert.Equal(t, 5, widened.Locs().Len())

	back, err := widened.WithLocs(abcLocs(), false)
	require.NoError(t, err)

	got := back.Correlation(false)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, orig.At(i, j), got.At(i, j), 1e-12, "cell %d,%d", i, j)
		}
	}
}

func TestWithLocsKeepOriginals(t *testing.T) {
	m := modelABC(t)

	extra := mat.NewDense(1, 3, []float64{0, 5, 0})
	u, err := m.WithLocs(extra, true)
	require.NoError(t, err)

	assert.Equal(t, 4, u.Locs().Len())
	// Original cells are embedded back unchanged after the blur.
	assert.InDelta(t, 0.5, u.Correlation(false).At(0, 1), 1e-12)
}

func TestWithLocsEmptyTarget(t *testing.T) {
	m := modelABC(t)

	empty, err := m.WithLocs(nil, false)
	require.NoError(t, err)

	assert.Equal(t, 0, empty.Locs().Len())
	assert.Nil(t, empty.Correlation(false))
	assert.Equal(t, 1, empty.NSubjects())
}

func TestWithLocsFromEmptyModel(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	grown, err := m.WithLocs(bcLocs(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, grown.Locs().Len())
	assert.InDelta(t, 0.0, grown.Correlation(false).At(0, 1), 1e-12)
}

func TestSetLocsInPlace(t *testing.T) {
	m := modelABC(t)

	require.NoError(t, m.SetLocs(bcLocs(), false))
	assert.Equal(t, 2, m.Locs().Len())
	assert.InDelta(t, 0.1, m.Correlation(false).At(0, 1), 1e-12)
}

func TestSetLocsInvalidShape(t *testing.T) {
	m := modelABC(t)

	bad := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	err := m.SetLocs(bad, false)
	var shapeErr *ErrCorrShape
	require.ErrorAs(t, err, &shapeErr)
	// The model is unchanged on error.
	assert.Equal(t, 3, m.Locs().Len())
}
