package testutil

import (
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Locations generates an n x 3 matrix of random coordinates in
// [-extent, extent) per axis. Rows are drawn independently, so duplicate
// rows are vanishingly unlikely but not impossible; callers that need
// distinct rows should deduplicate.
func (r *RNG) Locations(n int, extent float64) *mat.Dense {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, (r.rand.Float64()*2-1)*extent)
		}
	}
	return m
}

// Grid generates a deterministic axis-aligned grid of side x side x side
// locations with the given spacing, useful when tests need locations that
// are exactly shared between subjects.
func Grid(side int, spacing float64) *mat.Dense {
	m := mat.NewDense(side*side*side, 3, nil)
	row := 0
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			for z := 0; z < side; z++ {
				m.Set(row, 0, float64(x)*spacing)
				m.Set(row, 1, float64(y)*spacing)
				m.Set(row, 2, float64(z)*spacing)
				row++
			}
		}
	}
	return m
}

// Series generates a samples x channels observation series with smooth
// temporal structure, so channel correlations are well away from the
// degenerate 0 and +/-1 cases.
func (r *RNG) Series(samples, channels int) *mat.Dense {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := mat.NewDense(samples, channels, nil)
	// Shared drivers induce non-trivial correlation between channels.
	shared := make([]float64, samples)
	for t := range shared {
		shared[t] = r.rand.NormFloat64()
	}
	for c := 0; c < channels; c++ {
		mix := r.rand.Float64()
		for t := 0; t < samples; t++ {
			m.Set(t, c, mix*shared[t]+(1-mix)*r.rand.NormFloat64())
		}
	}
	return m
}

// Correlation generates a valid channels x channels correlation matrix
// (symmetric, unit diagonal, off-diagonal strictly inside (-1, 1)) from a
// random series.
func (r *RNG) Correlation(channels int) *mat.Dense {
	series := r.Series(channels*8+16, channels)
	sym := mat.NewSymDense(channels, nil)
	stat.CorrelationMatrix(sym, series, nil)
	out := mat.NewDense(channels, channels, nil)
	for i := 0; i < channels; i++ {
		for j := 0; j < channels; j++ {
			out.Set(i, j, sym.At(i, j))
		}
	}
	return out
}
