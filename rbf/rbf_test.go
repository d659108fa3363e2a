package rbf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/locs"
)

func TestLogRBF(t *testing.T) {
	from := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}})
	to := locs.New([]locs.Point{{X: 5, Y: 0, Z: 0}})

	w, err := LogRBF(to, from, 10)
	require.NoError(t, err)

	// -d^2 / (2 * width^2) with d = 5 on both sides.
	want := -25.0 / 200.0
	assert.InDelta(t, want, w.At(0, 0), 1e-12)
	assert.InDelta(t, want, w.At(0, 1), 1e-12)
}

func TestLogRBFDeltaRows(t *testing.T) {
	from := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}})
	to := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}})

	w, err := LogRBF(to, from, 20)
	require.NoError(t, err)

	// Row 0 matches a source location exactly: a delta row.
	assert.Equal(t, 0.0, w.At(0, 0))
	assert.True(t, math.IsInf(w.At(0, 1), -1))

	// Row 1 has no exact match: plain Gaussian weights.
	assert.InDelta(t, -9.0/800.0, w.At(1, 0), 1e-12)
	assert.InDelta(t, -49.0/800.0, w.At(1, 1), 1e-12)
}

func TestLogRBFInvalidWidth(t *testing.T) {
	s := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}})
	_, err := LogRBF(s, s, 0)
	var widthErr *ErrInvalidWidth
	require.ErrorAs(t, err, &widthErr)
}

func TestLogRBFEmpty(t *testing.T) {
	s := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}})
	w, err := LogRBF(locs.Empty(), s, 20)
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestBlurIdentityOnMatchingSets(t *testing.T) {
	set := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 5, Y: 0, Z: 0}, {X: 0, Y: 5, Z: 0}})
	z := zMatrix([][]float64{
		{math.Inf(1), 0.4, -0.2},
		{0.4, math.Inf(1), 0.1},
		{-0.2, 0.1, math.Inf(1)},
	})

	w, err := LogRBF(set, set, 20)
	require.NoError(t, err)
	acc, err := Blur(z, w)
	require.NoError(t, err)

	got := acc.Recover(true)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				assert.True(t, math.IsInf(got.At(i, j), 1))
				continue
			}
			assert.InDelta(t, z.At(i, j), got.At(i, j), 1e-12, "cell %d,%d", i, j)
			assert.InDelta(t, 0.0, acc.Den.At(i, j), 1e-12)
		}
	}
}

func TestBlurSpreadsEvidence(t *testing.T) {
	from := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}})
	to := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}})
	z := zMatrix([][]float64{
		{math.Inf(1), 0.6},
		{0.6, math.Inf(1)},
	})

	w, err := LogRBF(to, from, 20)
	require.NoError(t, err)
	acc, err := Blur(z, w)
	require.NoError(t, err)

	got := acc.Recover(true)

	// Exact-match cells reproduce the source.
	assert.InDelta(t, 0.6, got.At(0, 2), 1e-12)

	// The interpolated location sees a weighted mix; with a single finite
	// source value the mix is that value again.
	assert.InDelta(t, 0.6, got.At(1, 0), 1e-9)

	// Its accumulated weight is below one: evidence was borrowed, not
	// observed.
	assert.Less(t, acc.Den.At(1, 0), 0.0)
}

func TestBlurNegativeEvidence(t *testing.T) {
	from := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}})
	to := locs.New([]locs.Point{{X: 2, Y: 0, Z: 0}, {X: 8, Y: 0, Z: 0}})
	z := zMatrix([][]float64{
		{math.Inf(1), -0.3},
		{-0.3, math.Inf(1)},
	})

	w, err := LogRBF(to, from, 20)
	require.NoError(t, err)
	acc, err := Blur(z, w)
	require.NoError(t, err)

	got := acc.Recover(true)
	assert.InDelta(t, -0.3, got.At(0, 1), 1e-9)
	assert.InDelta(t, -0.3, got.At(1, 0), 1e-9)
}

func TestBlurShapeMismatch(t *testing.T) {
	z := zMatrix([][]float64{{math.Inf(1)}})
	from := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}})
	to := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}})

	w, err := LogRBF(to, from, 20)
	require.NoError(t, err)
	_, err = Blur(z, w)
	assert.Error(t, err)
}

func TestBlurAccumulatorEmptySource(t *testing.T) {
	to := locs.New([]locs.Point{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}})
	acc, err := BlurAccumulator(nil, locs.Empty(), to, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, acc.Dim())
	assert.InDelta(t, 0.0, acc.Recover(false).At(0, 1), 1e-12)
}

func zMatrix(rows [][]float64) *mat.Dense {
	n := len(rows)
	out := mat.NewDense(n, n, nil)
	for i, row := range rows {
		for j, v := range row {
			out.Set(i, j, v)
		}
	}
	return out
}
