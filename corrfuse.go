package corrfuse

import (
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/locs"
	"github.com/hupe1980/corrfuse/logspace"
)

// MaxRecommendedLocations is the model size above which dense-matrix
// operations get an advisory warning. Operations still run; the constant
// only gates the log line.
const MaxRecommendedLocations = 1000

// Model is a fused correlation model: a canonical location set plus a
// log-domain accumulator of correlation evidence aligned to it.
//
// All exported methods are safe for concurrent use. Mutating operations
// (Update, AbsorbSubject, SetLocs) build their result off to the side and
// swap it in under the write lock, so a failed operation leaves the model
// untouched.
type Model struct {
	mu       sync.RWMutex
	locs     *locs.Set
	acc      *logspace.Accumulator
	nSubs    int
	rbfWidth float64
	meta     map[string]any
	created  time.Time

	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// New creates an empty model over the given n x 3 location table: zero
// evidence everywhere, zero subjects. Use it as a fusion target for
// AbsorbSubject or Update.
func New(locations mat.Matrix, optFns ...Option) (*Model, error) {
	set, _, err := locs.FromMatrix(locations)
	if err != nil {
		return nil, translateError(err)
	}
	o := applyOptions(optFns)
	return newModel(set, logspace.Zero(set.Len()), 0, o), nil
}

// NewFromAccumulator creates a model directly from a prepared accumulator
// aligned to set. nSubs is the subject count the evidence represents. This
// is the expert constructor; NewFromSubjects is the usual entry point.
func NewFromAccumulator(acc *logspace.Accumulator, set *locs.Set, nSubs int, optFns ...Option) (*Model, error) {
	if set == nil {
		set = locs.Empty()
	}
	if acc == nil {
		acc = logspace.Zero(set.Len())
	}
	if err := acc.Validate(set.Len()); err != nil {
		return nil, translateError(err)
	}
	o := applyOptions(optFns)
	return newModel(set, acc.Clone(), nSubs, o), nil
}

// NewFromSubjects fuses the given subjects into a model over the union of
// their locations. Each subject's evidence is spread onto the union grid
// with the RBF kernel and folded into the accumulator; subjects whose
// locations already cover the union contribute their matrix verbatim.
func NewFromSubjects(subjects []*Subject, optFns ...Option) (*Model, error) {
	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}
	o := applyOptions(optFns)

	union := locs.Empty()
	for _, sub := range subjects {
		union = locs.Union(union, sub.locs)
	}
	m := newModel(union, logspace.Zero(union.Len()), 0, o)
	for _, sub := range subjects {
		if err := m.AbsorbSubject(sub); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func newModel(set *locs.Set, acc *logspace.Accumulator, nSubs int, o options) *Model {
	return &Model{
		locs:     set,
		acc:      acc,
		nSubs:    nSubs,
		rbfWidth: o.rbfWidth,
		meta:     o.meta,
		created:  defaultCreated(o.created),
		opts:     o,
		logger:   o.logger,
		metrics:  o.metricsCollector,
	}
}

func defaultCreated(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// Locs returns the model's canonical location set.
func (m *Model) Locs() *locs.Set {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locs
}

// NSubjects returns the number of subjects fused into the model.
func (m *Model) NSubjects() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nSubs
}

// RBFWidth returns the Gaussian kernel width used for spatial blur.
func (m *Model) RBFWidth() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rbfWidth
}

// CreatedAt returns the model's creation timestamp.
func (m *Model) CreatedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created
}

// Meta returns a copy of the model's metadata map.
func (m *Model) Meta() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMeta(m.meta)
}

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// Accumulator returns a deep copy of the model's log-domain accumulator.
func (m *Model) Accumulator() *logspace.Accumulator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acc.Clone()
}

// Correlation decodes the accumulated evidence into a correlation matrix
// over the model's locations, or nil for an empty model. When zTransform is
// true the matrix stays in Fisher z-space (diagonal +Inf); otherwise values
// are mapped back into [-1, 1] with a unit diagonal. Cells that never
// received evidence decode to 0.
func (m *Model) Correlation(zTransform bool) *mat.Dense {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acc.Recover(zTransform)
}

// Slice returns a new model restricted to the location rows idx. The
// accumulator cells among the selected rows are carried over exactly; the
// subject count and kernel width are inherited.
func (m *Model) Slice(idx []int) (*Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, perm, err := m.locs.Select(idx)
	if err != nil {
		return nil, err
	}
	// perm maps positions of idx to canonical rows of sub; invert it to
	// know which original row feeds each new row.
	src := make([]int, sub.Len())
	for i := range src {
		src[i] = -1
	}
	for i, a := range perm {
		if src[a] < 0 {
			src[a] = idx[i]
		}
	}
	o := m.opts
	o.meta = copyMeta(m.meta)
	o.created = m.created
	return newModel(sub, m.acc.Reindex(src), m.nSubs, o), nil
}

// String returns a short human-readable summary.
func (m *Model) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("corrfuse.Model(%d locations, %d subjects, width=%g)", m.locs.Len(), m.nSubs, m.rbfWidth)
}
