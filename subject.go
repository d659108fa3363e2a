package corrfuse

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/corrfuse/locs"
)

// Subject is one subject's evidence: a pairwise correlation matrix aligned
// row-for-row with a canonical location set.
type Subject struct {
	corr *mat.Dense
	locs *locs.Set
}

// NewSubject builds a Subject from a raw correlation matrix and an n x 3
// location table. Locations are canonicalized (deduplicated, sorted) and the
// correlation matrix is permuted to match; for duplicate rows the first
// occurrence wins.
func NewSubject(corr mat.Matrix, locations mat.Matrix) (*Subject, error) {
	set, idx, err := locs.FromMatrix(locations)
	if err != nil {
		return nil, translateError(err)
	}
	if corr == nil {
		if set.Len() != 0 {
			return nil, &ErrCorrShape{Locs: set.Len()}
		}
		return &Subject{locs: set}, nil
	}
	r, c := corr.Dims()
	if r != c || r != len(idx) {
		return nil, &ErrCorrShape{Rows: r, Cols: c, Locs: len(idx)}
	}
	if set.Len() == 0 {
		return &Subject{locs: set}, nil
	}

	// inv maps each canonical row back to the first input row that landed
	// on it, so the permuted matrix picks consistent cells for duplicates.
	inv := make([]int, set.Len())
	for i := range inv {
		inv[i] = -1
	}
	for i, a := range idx {
		if inv[a] < 0 {
			inv[a] = i
		}
	}
	canon := mat.NewDense(set.Len(), set.Len(), nil)
	for a := 0; a < set.Len(); a++ {
		for b := 0; b < set.Len(); b++ {
			canon.Set(a, b, corr.At(inv[a], inv[b]))
		}
	}
	return &Subject{corr: canon, locs: set}, nil
}

// SubjectFromSeries builds a Subject from an observation series (samples x
// channels) by computing the Pearson correlation between channels. The
// channel count must equal the location row count, and at least two samples
// are required.
func SubjectFromSeries(series mat.Matrix, locations mat.Matrix) (*Subject, error) {
	if series == nil {
		return nil, &ErrSeriesShape{}
	}
	samples, channels := series.Dims()
	lr := 0
	if locations != nil {
		lr, _ = locations.Dims()
	}
	if samples < 2 || channels != lr {
		return nil, &ErrSeriesShape{Samples: samples, Channels: channels, Locs: lr}
	}
	corr := mat.NewSymDense(channels, nil)
	stat.CorrelationMatrix(corr, series, nil)
	return NewSubject(corr, locations)
}

// Corr returns the subject's canonical correlation matrix. Callers must not
// mutate it.
func (s *Subject) Corr() *mat.Dense { return s.corr }

// Locs returns the subject's canonical location set.
func (s *Subject) Locs() *locs.Set { return s.locs }
