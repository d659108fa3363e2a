package corrfuse

import (
	"context"
	"time"

	"github.com/hupe1980/corrfuse/locs"
	"github.com/hupe1980/corrfuse/logspace"
)

// Merged returns a new model holding the fused evidence of m and other over
// the union of their location sets; both inputs are unchanged. Subject
// counts add. Metadata maps are merged with the receiver's keys winning on
// conflict; the receiver's kernel width and codec settings carry over.
//
// Fusing is an elementwise logaddexp of the two accumulators, so merging is
// commutative and associative up to metadata precedence: fusing the same
// subjects in any grouping yields the same correlations.
func (m *Model) Merged(other *Model) (*Model, error) {
	oLocs, oAcc, oSubs, oMeta := other.state()

	m.mu.RLock()
	defer m.mu.RUnlock()

	start := time.Now()
	set, acc, err := fuse(m.acc, m.locs, oAcc, oLocs, m.rbfWidth)
	m.metrics.RecordUpdate(set.Len(), time.Since(start), err)
	m.logger.LogUpdate(context.Background(), m.nSubs+oSubs, set.Len(), err)
	if err != nil {
		return nil, translateError(err)
	}

	o := m.opts
	o.meta = mergeMeta(m.meta, oMeta)
	o.created = m.created
	return newModel(set, acc, m.nSubs+oSubs, o), nil
}

// Update fuses other into m in place. The merged state is built first and
// swapped in under the write lock, so a failed update leaves m untouched.
func (m *Model) Update(other *Model) error {
	oLocs, oAcc, oSubs, oMeta := other.state()

	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	set, acc, err := fuse(m.acc, m.locs, oAcc, oLocs, m.rbfWidth)
	m.metrics.RecordUpdate(set.Len(), time.Since(start), err)
	m.logger.LogUpdate(context.Background(), m.nSubs+oSubs, set.Len(), err)
	if err != nil {
		return translateError(err)
	}

	m.locs = set
	m.acc = acc
	m.nSubs += oSubs
	m.meta = mergeMeta(m.meta, oMeta)
	return nil
}

// AbsorbSubject fuses one subject's evidence into m in place, expanding the
// model's locations to the union with the subject's. The subject counts as
// one toward NSubjects.
func (m *Model) AbsorbSubject(sub *Subject) error {
	if sub == nil {
		return ErrNoSubjects
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	set, acc, err := fuse(m.acc, m.locs, logspace.FromCorrelation(sub.corr), sub.locs, m.rbfWidth)
	m.metrics.RecordUpdate(set.Len(), time.Since(start), err)
	m.logger.LogUpdate(context.Background(), m.nSubs+1, set.Len(), err)
	if err != nil {
		return translateError(err)
	}

	m.locs = set
	m.acc = acc
	m.nSubs++
	return nil
}

// state snapshots another model's fields under its own lock, so fuse never
// holds two model locks at once.
func (m *Model) state() (*locs.Set, *logspace.Accumulator, int, map[string]any) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locs, m.acc.Clone(), m.nSubs, copyMeta(m.meta)
}

// fuse retargets both accumulators onto the union of the two location sets
// and combines them cellwise.
func fuse(a *logspace.Accumulator, aLocs *locs.Set, b *logspace.Accumulator, bLocs *locs.Set, width float64) (*locs.Set, *logspace.Accumulator, error) {
	union := locs.Union(aLocs, bLocs)
	ra, _, err := retargetAccumulator(a, aLocs, union, width)
	if err != nil {
		return nil, nil, err
	}
	rb, _, err := retargetAccumulator(b, bLocs, union, width)
	if err != nil {
		return nil, nil, err
	}
	acc, err := logspace.Combine(ra, rb)
	if err != nil {
		return nil, nil, err
	}
	return union, acc, nil
}

// mergeMeta merges right into left with left keys winning.
func mergeMeta(left, right map[string]any) map[string]any {
	if left == nil && right == nil {
		return nil
	}
	out := make(map[string]any, len(left)+len(right))
	for k, v := range right {
		out[k] = v
	}
	for k, v := range left {
		out[k] = v
	}
	return out
}
