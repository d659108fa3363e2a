package corrfuse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/testutil"
)

func TestNewRecordingCanonicalizes(t *testing.T) {
	// Channels arrive in reverse location order; columns must follow.
	locations := mat.NewDense(2, 3, []float64{
		9, 0, 0,
		1, 0, 0,
	})
	data := mat.NewDense(3, 2, []float64{
		10, 20,
		11, 21,
		12, 22,
	})

	rec, err := NewRecording(data, locations)
	require.NoError(t, err)

	assert.Equal(t, 1.0, rec.Locs().At(0).X)
	assert.Equal(t, 20.0, rec.Data().At(0, 0))
	assert.Equal(t, 10.0, rec.Data().At(0, 1))
	assert.Equal(t, 3, rec.Samples())
}

func TestRecordingSubject(t *testing.T) {
	rng := testutil.NewRNG(11)
	rec, err := NewRecording(rng.Series(100, 2), bcLocs())
	require.NoError(t, err)

	sub, err := rec.Subject()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sub.Corr().At(0, 0), 1e-12)
	assert.InDelta(t, sub.Corr().At(0, 1), sub.Corr().At(1, 0), 1e-12)
}

func TestPredictObservedColumnsPassThrough(t *testing.T) {
	rng := testutil.NewRNG(3)
	grid := testutil.Grid(2, 10)

	sub, err := SubjectFromSeries(rng.Series(300, 8), grid)
	require.NoError(t, err)
	m, err := NewFromSubjects([]*Subject{sub})
	require.NoError(t, err)

	// Record at two of the eight grid locations.
	recLocs := mat.NewDense(2, 3, []float64{
		0, 0, 0,
		0, 0, 10,
	})
	series := rng.Series(50, 2)
	rec, err := NewRecording(series, recLocs)
	require.NoError(t, err)

	res, err := m.Predict(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, 8, res.Locs().Len())
	assert.Equal(t, uint64(2), res.Observed().GetCardinality())

	// Observed columns carry the z-scored input.
	z := rec.zscored()
	for _, p := range rec.Locs().Points() {
		i, ok := res.Locs().IndexOf(p)
		require.True(t, ok)
		assert.True(t, res.IsObserved(i))
		ch, _ := rec.Locs().IndexOf(p)
		for s := 0; s < 5; s++ {
			assert.InDelta(t, z.At(s, ch), res.Data().At(s, i), 1e-12)
		}
	}

	// Reconstructed columns are finite.
	samples, _ := res.Data().Dims()
	for i := 0; i < res.Locs().Len(); i++ {
		if res.IsObserved(i) {
			continue
		}
		for s := 0; s < samples; s++ {
			v := res.Data().At(s, i)
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "cell %d,%d", s, i)
		}
	}
}

func TestPredictSnapsNearbyElectrodes(t *testing.T) {
	rng := testutil.NewRNG(5)
	grid := testutil.Grid(2, 10)

	sub, err := SubjectFromSeries(rng.Series(300, 8), grid)
	require.NoError(t, err)
	m, err := NewFromSubjects([]*Subject{sub})
	require.NoError(t, err)

	// An electrode 1mm off a grid point snaps onto it, so the union stays
	// at the grid size.
	recLocs := mat.NewDense(1, 3, []float64{0.9, 0, 0})
	rec, err := NewRecording(rng.Series(40, 1), recLocs)
	require.NoError(t, err)

	res, err := m.Predict(context.Background(), rec, WithMatchThreshold(2))
	require.NoError(t, err)
	assert.Equal(t, 8, res.Locs().Len())

	// With snapping disabled the off-grid location joins the union.
	res, err = m.Predict(context.Background(), rec, WithNearestNeighbor(false))
	require.NoError(t, err)
	assert.Equal(t, 9, res.Locs().Len())
}

func TestPredictForceUpdate(t *testing.T) {
	rng := testutil.NewRNG(9)
	grid := testutil.Grid(2, 10)

	sub, err := SubjectFromSeries(rng.Series(300, 8), grid)
	require.NoError(t, err)
	m, err := NewFromSubjects([]*Subject{sub})
	require.NoError(t, err)

	recLocs := mat.NewDense(2, 3, []float64{
		0, 0, 0,
		10, 10, 10,
	})
	rec, err := NewRecording(rng.Series(60, 2), recLocs)
	require.NoError(t, err)

	res, err := m.Predict(context.Background(), rec, WithForceUpdate(true))
	require.NoError(t, err)
	assert.Equal(t, 8, res.Locs().Len())
	// The receiver model is untouched by the force update.
	assert.Equal(t, 1, m.NSubjects())
}

func TestPredictErrors(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	_, err = m.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoLocations)

	m2 := modelABC(t)
	_, err = m2.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoMatches)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec, err := NewRecording(testutil.NewRNG(1).Series(10, 2), bcLocs())
	require.NoError(t, err)
	_, err = m2.Predict(ctx, rec)
	assert.ErrorIs(t, err, context.Canceled)
}
