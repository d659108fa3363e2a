package corrfuse

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/locs"
	"github.com/hupe1980/corrfuse/logspace"
	"github.com/hupe1980/corrfuse/rbf"
)

// WithLocs returns a new model retargeted onto the given n x 3 location
// table; the receiver is unchanged. When keepOriginals is true the target
// is the union of the model's current locations and the new ones.
//
// Three paths apply, cheapest first: a target equal to the current set is a
// copy; a target fully contained in the current set is a pure reindex with
// evidence carried over exactly; anything else runs the RBF blur. On a
// strict superset the cells covering the original locations are re-embedded
// from the original accumulator afterwards, so widening and then narrowing
// back recovers the original evidence exactly.
func (m *Model) WithLocs(locations mat.Matrix, keepOriginals bool) (*Model, error) {
	target, err := m.resolveTarget(locations, keepOriginals)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	start := time.Now()
	acc, blurred, err := retargetAccumulator(m.acc, m.locs, target, m.rbfWidth)
	m.metrics.RecordRetarget(m.locs.Len(), target.Len(), blurred, time.Since(start), err)
	m.logger.LogRetarget(context.Background(), m.locs.Len(), target.Len(), blurred, err)
	if err != nil {
		return nil, translateError(err)
	}
	if target.Len() > MaxRecommendedLocations {
		m.logger.WarnLargeModel(context.Background(), target.Len())
	}

	o := m.opts
	o.meta = copyMeta(m.meta)
	o.created = m.created
	return newModel(target, acc, m.nSubs, o), nil
}

// SetLocs retargets the model in place: WithLocs semantics with the swap
// done under the write lock. On error the model is unchanged.
func (m *Model) SetLocs(locations mat.Matrix, keepOriginals bool) error {
	target, _, err := locs.FromMatrix(locations)
	if err != nil {
		return translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if keepOriginals {
		target = locs.Union(m.locs, target)
	}
	start := time.Now()
	acc, blurred, err := retargetAccumulator(m.acc, m.locs, target, m.rbfWidth)
	m.metrics.RecordRetarget(m.locs.Len(), target.Len(), blurred, time.Since(start), err)
	m.logger.LogRetarget(context.Background(), m.locs.Len(), target.Len(), blurred, err)
	if err != nil {
		return translateError(err)
	}
	if target.Len() > MaxRecommendedLocations {
		m.logger.WarnLargeModel(context.Background(), target.Len())
	}
	m.locs = target
	m.acc = acc
	return nil
}

func (m *Model) resolveTarget(locations mat.Matrix, keepOriginals bool) (*locs.Set, error) {
	target, _, err := locs.FromMatrix(locations)
	if err != nil {
		return nil, translateError(err)
	}
	if keepOriginals {
		m.mu.RLock()
		target = locs.Union(m.locs, target)
		m.mu.RUnlock()
	}
	return target, nil
}

// retargetAccumulator moves evidence from one location set to another. The
// returned flag reports whether the spatial blur ran.
func retargetAccumulator(acc *logspace.Accumulator, from, to *locs.Set, width float64) (*logspace.Accumulator, bool, error) {
	switch {
	case to.Len() == 0:
		return &logspace.Accumulator{}, false, nil
	case from.Len() == 0:
		return logspace.Zero(to.Len()), false, nil
	case from.Equal(to):
		return acc.Clone(), false, nil
	case from.ContainsAll(to):
		idx := make([]int, to.Len())
		for i := 0; i < to.Len(); i++ {
			idx[i], _ = from.IndexOf(to.At(i))
		}
		return acc.Reindex(idx), false, nil
	}

	blurred, err := rbf.BlurAccumulator(acc, from, to, width)
	if err != nil {
		return nil, true, err
	}
	if to.ContainsAll(from) {
		embedOriginal(blurred, acc, from, to)
	}
	return blurred, true, nil
}

// embedOriginal overwrites the blurred cells that cover the original
// location pairs with the original accumulator cells, preserving exact
// evidence (including per-cell weights) across a widening retarget.
func embedOriginal(dst, src *logspace.Accumulator, from, to *locs.Set) {
	rows := make([]int, from.Len())
	for k := 0; k < from.Len(); k++ {
		rows[k], _ = to.IndexOf(from.At(k))
	}
	for k, i := range rows {
		for l, j := range rows {
			dst.Num.Set(i, j, src.Num.At(k, l))
			dst.Den.Set(i, j, src.Den.At(k, l))
		}
	}
}
