package corrfuse

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/locs"
	"github.com/hupe1980/corrfuse/logspace"
)

type predictOptions struct {
	nearestNeighbor bool
	matchThreshold  float64
	forceUpdate     bool
}

// PredictOption configures a single Predict call.
type PredictOption func(*predictOptions)

// WithNearestNeighbor controls snapping of electrode locations onto the
// model grid before reconstruction. Enabled by default; disable it when the
// recording's coordinates are already registered to the model space.
func WithNearestNeighbor(enabled bool) PredictOption {
	return func(o *predictOptions) {
		o.nearestNeighbor = enabled
	}
}

// WithMatchThreshold sets the maximum snapping distance. Electrodes farther
// from every model location keep their original coordinates. A value <= 0
// selects the automatic threshold, the largest nearest-neighbor gap of the
// model grid.
func WithMatchThreshold(d float64) PredictOption {
	return func(o *predictOptions) {
		o.matchThreshold = d
	}
}

// WithForceUpdate folds the recording's own correlation evidence into a
// copy of the model before reconstructing, so the prediction reflects the
// subject's structure even where the model had none.
func WithForceUpdate(enabled bool) PredictOption {
	return func(o *predictOptions) {
		o.forceUpdate = enabled
	}
}

func applyPredictOptions(optFns []PredictOption) predictOptions {
	o := predictOptions{
		nearestNeighbor: true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Reconstruction is the output of Predict: a z-scored activity series over
// the union of the model's and the recording's locations, with a bitmap
// separating observed channels from reconstructed ones.
type Reconstruction struct {
	data     *mat.Dense
	locs     *locs.Set
	observed *roaring.Bitmap
}

// Data returns the samples x locations activity series. Observed columns
// carry the z-scored input; the rest are reconstructed.
func (r *Reconstruction) Data() *mat.Dense { return r.data }

// Locs returns the location set the series is aligned to.
func (r *Reconstruction) Locs() *locs.Set { return r.locs }

// Observed returns the bitmap of location rows that were directly recorded.
func (r *Reconstruction) Observed() *roaring.Bitmap { return r.observed }

// IsObserved reports whether location row i was directly recorded.
func (r *Reconstruction) IsObserved(i int) bool {
	return r.observed.Contains(uint32(i))
}

// Predict reconstructs full-model activity from a partial recording. The
// recording's electrodes are optionally snapped onto the model grid, the
// model is retargeted onto the union of both location sets, and activity at
// unobserved locations is estimated by correlation-weighted regression on
// the observed channels.
func (m *Model) Predict(ctx context.Context, rec *Recording, optFns ...PredictOption) (*Reconstruction, error) {
	o := applyPredictOptions(optFns)

	start := time.Now()
	res, err := m.predict(ctx, rec, o)
	known, total := 0, 0
	if res != nil {
		known = int(res.observed.GetCardinality())
		total = res.locs.Len()
	}
	m.metrics.RecordPredict(known, total, time.Since(start), err)
	m.logger.LogPredict(ctx, known, total, err)
	return res, err
}

func (m *Model) predict(ctx context.Context, rec *Recording, o predictOptions) (*Reconstruction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Locs().Len() == 0 {
		return nil, ErrNoLocations
	}
	if rec == nil || rec.locs.Len() == 0 {
		return nil, ErrNoMatches
	}

	if o.nearestNeighbor {
		rec = rec.snapped(m.Locs(), o.matchThreshold)
	}

	work := m
	if o.forceUpdate {
		sub, err := rec.Subject()
		if err != nil {
			return nil, err
		}
		other, err := NewFromAccumulator(logspace.FromCorrelation(sub.corr), sub.locs, 1,
			WithRBFWidth(m.RBFWidth()))
		if err != nil {
			return nil, err
		}
		work, err = m.Merged(other)
		if err != nil {
			return nil, err
		}
	}

	union, err := work.WithLocs(rec.locs.Matrix(), true)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := union.Locs()
	total := set.Len()
	observed := set.Overlap(rec.locs)
	nKnown := int(observed.GetCardinality())
	if nKnown == 0 {
		return nil, ErrNoMatches
	}

	known := make([]int, 0, nKnown)
	unknown := make([]int, 0, total-nKnown)
	channel := make([]int, total)
	for i := 0; i < total; i++ {
		if ch, ok := rec.locs.IndexOf(set.At(i)); ok {
			channel[i] = ch
			known = append(known, i)
		} else {
			channel[i] = -1
			unknown = append(unknown, i)
		}
	}

	z := rec.zscored()
	samples, _ := z.Dims()
	out := mat.NewDense(samples, total, nil)
	for _, i := range known {
		for t := 0; t < samples; t++ {
			out.Set(t, i, z.At(t, channel[i]))
		}
	}

	if len(unknown) > 0 {
		corr := union.Correlation(false)
		kaa := pick(corr, known, known)
		kba := pick(corr, unknown, known)

		// W = Kba * pinv(Kaa); activity at unknown rows is the observed
		// series pushed through W.
		var w mat.Dense
		w.Mul(kba, pseudoInverse(kaa))
		var recon mat.Dense
		zKnown := pick2(z, known, channel)
		recon.Mul(zKnown, w.T())
		for c, i := range unknown {
			for t := 0; t < samples; t++ {
				out.Set(t, i, recon.At(t, c))
			}
		}
	}

	return &Reconstruction{data: out, locs: set, observed: observed}, nil
}

// pick returns the submatrix of x at the given row and column indexes.
func pick(x *mat.Dense, rows, cols []int) *mat.Dense {
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, x.At(r, c))
		}
	}
	return out
}

// pick2 selects the series columns feeding the given union rows.
func pick2(z *mat.Dense, known []int, channel []int) *mat.Dense {
	samples, _ := z.Dims()
	out := mat.NewDense(samples, len(known), nil)
	for j, i := range known {
		for t := 0; t < samples; t++ {
			out.Set(t, j, z.At(t, channel[i]))
		}
	}
	return out
}

// pseudoInverse computes the Moore-Penrose inverse via thin SVD, dropping
// singular values below a relative tolerance. Correlation submatrices can
// be rank-deficient when electrodes coincide, so plain inversion is not an
// option.
func pseudoInverse(x *mat.Dense) *mat.Dense {
	var svd mat.SVD
	ok := svd.Factorize(x, mat.SVDThin)
	if !ok {
		n, _ := x.Dims()
		return mat.NewDense(n, n, nil)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	tol := 0.0
	for _, s := range values {
		if s > tol {
			tol = s
		}
	}
	n, _ := x.Dims()
	tol *= float64(n) * 2.220446049250313e-16

	d := mat.NewDense(len(values), len(values), nil)
	for i, s := range values {
		if s > tol {
			d.Set(i, i, 1/s)
		}
	}
	var tmp, out mat.Dense
	tmp.Mul(&v, d)
	out.Mul(&tmp, u.T())
	return &out
}
