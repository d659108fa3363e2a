package rbf

import (
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/locs"
	"github.com/hupe1980/corrfuse/logspace"
)

// Blur redistributes the z-transformed correlation evidence z (source x
// source) onto the target geometry described by the log weight matrix logW
// (target x source), returning a fresh log-domain accumulator over the
// target set.
//
// Every target cell (i, j) is the weighted sum over all finite source cells
// (k, l) of exp(W[i][k]) * z[k][l] * exp(W[j][l]), split by sign so that
// positive and negative mass accumulate in their own log planes, with the
// matching weight product accumulated as the denominator. Non-finite source
// cells (the +Inf diagonal sentinel, undiagnosed NaN input) carry no
// evidence and are excluded from both numerator and denominator.
//
// The sums are evaluated as three quadratic forms E*P*E^T over the
// exponentiated parts, with per-row and global log shifts applied first so
// the exponentials stay in range. The three contractions run concurrently.
func Blur(z *mat.Dense, logW *mat.Dense) (*logspace.Accumulator, error) {
	if z == nil || logW == nil {
		return &logspace.Accumulator{}, nil
	}
	ns, _ := z.Dims()
	nt, wc := logW.Dims()
	if wc != ns {
		return nil, &logspace.ErrShapeMismatch{NumRows: ns, NumCols: ns, DenRows: nt, DenCols: wc, Locs: nt}
	}
	if ns == 0 || nt == 0 {
		return &logspace.Accumulator{}, nil
	}

	// Split the source evidence by sign and record which cells carry any.
	logPos := mat.NewDense(ns, ns, nil)
	logNeg := mat.NewDense(ns, ns, nil)
	mask := mat.NewDense(ns, ns, nil)
	maxPos, maxNeg := math.Inf(-1), math.Inf(-1)
	negInf := math.Inf(-1)
	for k := 0; k < ns; k++ {
		for l := 0; l < ns; l++ {
			v := z.At(k, l)
			logPos.Set(k, l, negInf)
			logNeg.Set(k, l, negInf)
			if math.IsInf(v, 0) || math.IsNaN(v) {
				continue
			}
			mask.Set(k, l, 1)
			if v > 0 {
				lv := math.Log(v)
				logPos.Set(k, l, lv)
				if lv > maxPos {
					maxPos = lv
				}
			} else if v < 0 {
				lv := math.Log(-v)
				logNeg.Set(k, l, lv)
				if lv > maxNeg {
					maxNeg = lv
				}
			}
		}
	}

	// Row shifts keep exp(W) representable even for distant targets.
	shift := make([]float64, nt)
	for i := 0; i < nt; i++ {
		m := negInf
		for k := 0; k < ns; k++ {
			if w := logW.At(i, k); w > m {
				m = w
			}
		}
		shift[i] = m
	}
	expW := mat.NewDense(nt, ns, nil)
	for i := 0; i < nt; i++ {
		for k := 0; k < ns; k++ {
			expW.Set(i, k, math.Exp(logW.At(i, k)-shift[i]))
		}
	}

	expPart := func(logPart *mat.Dense, max float64) *mat.Dense {
		p := mat.NewDense(ns, ns, nil)
		if math.IsInf(max, -1) {
			return p
		}
		for k := 0; k < ns; k++ {
			for l := 0; l < ns; l++ {
				if lv := logPart.At(k, l); !math.IsInf(lv, -1) {
					p.Set(k, l, math.Exp(lv-max))
				}
			}
		}
		return p
	}

	contract := func(part *mat.Dense) *mat.Dense {
		var tmp, out mat.Dense
		tmp.Mul(expW, part)
		out.Mul(&tmp, expW.T())
		return &out
	}

	var sPos, sNeg, sDen *mat.Dense
	var g errgroup.Group
	g.Go(func() error {
		sPos = contract(expPart(logPos, maxPos))
		return nil
	})
	g.Go(func() error {
		sNeg = contract(expPart(logNeg, maxNeg))
		return nil
	})
	g.Go(func() error {
		sDen = contract(mask)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	num := mat.NewCDense(nt, nt, nil)
	den := mat.NewDense(nt, nt, nil)
	logShifted := func(s *mat.Dense, i, j int, max float64) float64 {
		v := s.At(i, j)
		if v <= 0 || math.IsInf(max, -1) {
			return negInf
		}
		return math.Log(v) + shift[i] + shift[j] + max
	}
	for i := 0; i < nt; i++ {
		for j := 0; j < nt; j++ {
			num.Set(i, j, complex(
				logShifted(sPos, i, j, maxPos),
				logShifted(sNeg, i, j, maxNeg),
			))
			den.Set(i, j, logShifted(sDen, i, j, 0))
		}
	}
	return &logspace.Accumulator{Num: num, Den: den}, nil
}

// BlurAccumulator recovers the z-space evidence of acc and blurs it onto
// the target set, building the kernel between target and source internally.
func BlurAccumulator(acc *logspace.Accumulator, from, to *locs.Set, width float64) (*logspace.Accumulator, error) {
	if to.Len() == 0 {
		return &logspace.Accumulator{}, nil
	}
	if acc.Dim() == 0 {
		return logspace.Zero(to.Len()), nil
	}
	w, err := LogRBF(to, from, width)
	if err != nil {
		return nil, err
	}
	return Blur(acc.Recover(true), w)
}
