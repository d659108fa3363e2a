package logspace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch indicates accumulator matrices whose shapes disagree with
// each other or with the location count they must align to.
type ErrShapeMismatch struct {
	NumRows, NumCols int
	DenRows, DenCols int
	Locs             int
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("accumulator shape mismatch: numerator %dx%d, denominator %dx%d, locations %d",
		e.NumRows, e.NumCols, e.DenRows, e.DenCols, e.Locs)
}

// LogAddExp returns log(exp(a) + exp(b)) without overflow or underflow.
func LogAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// R2Z applies the Fisher z-transform atanh elementwise, mapping correlations
// in (-1, 1) onto the real line. Cells at exactly ±1 (the diagonal) map to
// ±Inf, which marks them as sentinels excluded from blur.
func R2Z(r *mat.Dense) *mat.Dense {
	if r == nil {
		return nil
	}
	rows, cols := r.Dims()
	z := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			z.Set(i, j, math.Atanh(r.At(i, j)))
		}
	}
	return z
}

// Z2R applies the inverse Fisher transform tanh elementwise, mapping
// z-values back into the correlation range [-1, 1].
func Z2R(z *mat.Dense) *mat.Dense {
	if z == nil {
		return nil
	}
	rows, cols := z.Dims()
	r := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			r.Set(i, j, math.Tanh(z.At(i, j)))
		}
	}
	return r
}

// ToLog encodes a signed real matrix into the complex log representation:
// each cell x becomes complex(log(max(x,0)), log(max(-x,0))). Zero cells
// encode as (-Inf, -Inf), i.e. no mass in either plane.
func ToLog(x *mat.Dense) *mat.CDense {
	if x == nil {
		return nil
	}
	rows, cols := x.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := x.At(i, j)
			pos := math.Inf(-1)
			neg := math.Inf(-1)
			if v > 0 {
				pos = math.Log(v)
			} else if v < 0 {
				neg = math.Log(-v)
			}
			out.Set(i, j, complex(pos, neg))
		}
	}
	return out
}

// Accumulator is a log-domain correlation accumulator: a complex log
// numerator and a real log denominator, both n x n and aligned 1:1 with a
// location set. The n=0 empty case is represented by nil matrices (gonum
// does not allocate zero-dimension matrices).
type Accumulator struct {
	Num *mat.CDense
	Den *mat.Dense
}

// FromCorrelation initializes an accumulator from one subject's raw
// correlation matrix: numerator ToLog(R2Z(corr)), denominator zero
// (weight one everywhere).
func FromCorrelation(corr *mat.Dense) *Accumulator {
	if corr == nil {
		return &Accumulator{}
	}
	n, _ := corr.Dims()
	if n == 0 {
		return &Accumulator{}
	}
	return &Accumulator{
		Num: ToLog(R2Z(corr)),
		Den: mat.NewDense(n, n, nil),
	}
}

// Zero returns the zero-evidence accumulator over n locations: numerator
// and denominator both log(0) = -Inf, so combining it with real evidence
// adds no spurious weight.
func Zero(n int) *Accumulator {
	if n == 0 {
		return &Accumulator{}
	}
	num := mat.NewCDense(n, n, nil)
	den := mat.NewDense(n, n, nil)
	negInf := math.Inf(-1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			num.Set(i, j, complex(negInf, negInf))
			den.Set(i, j, negInf)
		}
	}
	return &Accumulator{Num: num, Den: den}
}

// Dim returns the location count the accumulator is aligned to.
func (a *Accumulator) Dim() int {
	if a == nil || a.Num == nil {
		return 0
	}
	n, _ := a.Num.Dims()
	return n
}

// Validate checks the shape invariants against a location count. It must be
// called before any numeric work that relies on alignment.
func (a *Accumulator) Validate(nLocs int) error {
	if a == nil || a.Num == nil || a.Den == nil {
		if nLocs == 0 && (a == nil || (a.Num == nil && a.Den == nil)) {
			return nil
		}
		return &ErrShapeMismatch{Locs: nLocs}
	}
	nr, nc := a.Num.Dims()
	dr, dc := a.Den.Dims()
	if nr != nc || dr != dc || nr != dr || nr != nLocs {
		return &ErrShapeMismatch{NumRows: nr, NumCols: nc, DenRows: dr, DenCols: dc, Locs: nLocs}
	}
	return nil
}

// Clone returns a deep copy.
func (a *Accumulator) Clone() *Accumulator {
	if a == nil || a.Num == nil {
		return &Accumulator{}
	}
	n, _ := a.Num.Dims()
	num := mat.NewCDense(n, n, nil)
	den := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			num.Set(i, j, a.Num.At(i, j))
			den.Set(i, j, a.Den.At(i, j))
		}
	}
	return &Accumulator{Num: num, Den: den}
}

// Combine folds two accumulators into a new one by elementwise logaddexp,
// applied independently to the real numerator plane, the imaginary
// numerator plane and the denominator. Combine is commutative and
// associative, so repeated merges in any order yield the same result.
func Combine(a, b *Accumulator) (*Accumulator, error) {
	if a.Dim() != b.Dim() {
		return nil, &ErrShapeMismatch{NumRows: a.Dim(), NumCols: a.Dim(), DenRows: b.Dim(), DenCols: b.Dim(), Locs: a.Dim()}
	}
	n := a.Dim()
	if n == 0 {
		return &Accumulator{}, nil
	}
	num := mat.NewCDense(n, n, nil)
	den := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			ca := a.Num.At(i, j)
			cb := b.Num.At(i, j)
			num.Set(i, j, complex(
				LogAddExp(real(ca), real(cb)),
				LogAddExp(imag(ca), imag(cb)),
			))
			den.Set(i, j, LogAddExp(a.Den.At(i, j), b.Den.At(i, j)))
		}
	}
	return &Accumulator{Num: num, Den: den}, nil
}

// Recover decodes the accumulator into a correlation matrix: the weighted
// average exp(re) - exp(im) over exp(den), computed per cell. The diagonal
// is forced to the sentinel: +Inf in z-space, 1 after the inverse Fisher
// transform. When zTransform is true the result stays in z-space and cells
// with zero accumulated weight decode to NaN, which downstream blurs treat
// as "no evidence". In correlation space those cells decode to 0.
func (a *Accumulator) Recover(zTransform bool) *mat.Dense {
	if a == nil || a.Num == nil {
		return nil
	}
	n, _ := a.Num.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				out.Set(i, j, math.Inf(1))
				continue
			}
			d := a.Den.At(i, j)
			if math.IsInf(d, -1) {
				out.Set(i, j, math.NaN())
				continue
			}
			c := a.Num.At(i, j)
			out.Set(i, j, (math.Exp(real(c))-math.Exp(imag(c)))/math.Exp(d))
		}
	}
	if zTransform {
		return out
	}
	r := Z2R(out)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.IsNaN(r.At(i, j)) {
				r.Set(i, j, 0)
			}
		}
	}
	return r
}

// Reindex returns a new accumulator whose row/column i holds the cell
// (idx[i], idx[j]) of a. It applies both permutations (canonical reorder)
// and subsets (retarget onto contained locations).
func (a *Accumulator) Reindex(idx []int) *Accumulator {
	if a == nil || a.Num == nil || len(idx) == 0 {
		return &Accumulator{}
	}
	n := len(idx)
	num := mat.NewCDense(n, n, nil)
	den := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			num.Set(i, j, a.Num.At(idx[i], idx[j]))
			den.Set(i, j, a.Den.At(idx[i], idx[j]))
		}
	}
	return &Accumulator{Num: num, Den: den}
}
