package corrfuse

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/corrfuse/locs"
)

// Recording is one subject's raw observation series (samples x channels)
// aligned column-for-column with a canonical location set. It is the input
// to Predict; use Subject for correlation-only evidence.
type Recording struct {
	data *mat.Dense
	locs *locs.Set
}

// NewRecording builds a Recording from a samples x channels series and an
// n x 3 location table with one row per channel. Locations are
// canonicalized and the series columns are permuted to match; for duplicate
// locations the first channel wins.
func NewRecording(data mat.Matrix, locations mat.Matrix) (*Recording, error) {
	set, idx, err := locs.FromMatrix(locations)
	if err != nil {
		return nil, translateError(err)
	}
	if data == nil {
		if set.Len() != 0 {
			return nil, &ErrSeriesShape{Locs: set.Len()}
		}
		return &Recording{locs: set}, nil
	}
	samples, channels := data.Dims()
	if channels != len(idx) || samples < 2 {
		return nil, &ErrSeriesShape{Samples: samples, Channels: channels, Locs: len(idx)}
	}
	if set.Len() == 0 {
		return &Recording{locs: set}, nil
	}

	inv := make([]int, set.Len())
	for i := range inv {
		inv[i] = -1
	}
	for ch, a := range idx {
		if inv[a] < 0 {
			inv[a] = ch
		}
	}
	canon := mat.NewDense(samples, set.Len(), nil)
	for a, ch := range inv {
		for t := 0; t < samples; t++ {
			canon.Set(t, a, data.At(t, ch))
		}
	}
	return &Recording{data: canon, locs: set}, nil
}

// Data returns the canonical series. Callers must not mutate it.
func (r *Recording) Data() *mat.Dense { return r.data }

// Locs returns the canonical location set.
func (r *Recording) Locs() *locs.Set { return r.locs }

// Samples returns the number of observations per channel.
func (r *Recording) Samples() int {
	if r.data == nil {
		return 0
	}
	s, _ := r.data.Dims()
	return s
}

// Subject computes the recording's pairwise correlation evidence.
func (r *Recording) Subject() (*Subject, error) {
	if r.locs.Len() == 0 {
		return &Subject{locs: r.locs}, nil
	}
	corr := mat.NewSymDense(r.locs.Len(), nil)
	stat.CorrelationMatrix(corr, r.data, nil)
	n := r.locs.Len()
	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dense.Set(i, j, corr.At(i, j))
		}
	}
	return &Subject{corr: dense, locs: r.locs}, nil
}

// snapped returns a copy of the recording with each location moved to its
// nearest counterpart in ref when within threshold. Locations farther away
// keep their original coordinates. threshold <= 0 means the automatic
// threshold (the largest nearest-neighbor gap of ref).
func (r *Recording) snapped(ref *locs.Set, threshold float64) *Recording {
	if r.locs.Len() == 0 || ref.Len() == 0 {
		return r
	}
	matcher := locs.NewMatcher(ref)
	if threshold <= 0 {
		threshold = matcher.Spacing()
	}
	points := r.locs.Points()
	moved := false
	for i, p := range points {
		row, d, ok := matcher.Nearest(p)
		if ok && d <= threshold {
			if q := ref.At(row); q != p {
				points[i] = q
				moved = true
			}
		}
	}
	if !moved {
		return r
	}

	set, idx := locs.Unique(points)
	samples, _ := r.data.Dims()
	inv := make([]int, set.Len())
	for i := range inv {
		inv[i] = -1
	}
	for ch, a := range idx {
		if inv[a] < 0 {
			inv[a] = ch
		}
	}
	canon := mat.NewDense(samples, set.Len(), nil)
	for a, ch := range inv {
		for t := 0; t < samples; t++ {
			canon.Set(t, a, r.data.At(t, ch))
		}
	}
	return &Recording{data: canon, locs: set}
}

// zscored returns the series with each column centered and scaled to unit
// variance. Constant columns scale to zero rather than dividing by zero.
func (r *Recording) zscored() *mat.Dense {
	samples, channels := r.data.Dims()
	out := mat.NewDense(samples, channels, nil)
	col := make([]float64, samples)
	for c := 0; c < channels; c++ {
		mat.Col(col, c, r.data)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for t := 0; t < samples; t++ {
			out.Set(t, c, (col[t]-mean)/std)
		}
	}
	return out
}
