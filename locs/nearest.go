package locs

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Match pairs a query location with its nearest row in a reference Set.
type Match struct {
	// QueryIndex is the row of the query set that was matched.
	QueryIndex int
	// Index is the matched row of the reference set.
	Index int
	// Distance is the Euclidean distance between the two rows.
	Distance float64
}

// Matcher answers nearest-neighbor queries against a Set using a kd-tree.
// Build it once per Set; queries do not mutate it.
type Matcher struct {
	set  *Set
	tree *kdtree.Tree
}

// NewMatcher builds a Matcher over s. An empty set yields a Matcher whose
// queries report no match.
func NewMatcher(s *Set) *Matcher {
	m := &Matcher{set: s}
	if s.Len() > 0 {
		pts := make(treePoints, s.Len())
		for i, p := range s.pts {
			pts[i] = treePoint{p: p, row: i}
		}
		m.tree = kdtree.New(pts, true)
	}
	return m
}

// Nearest returns the row of the underlying Set closest to p and the
// Euclidean distance to it. ok is false for an empty Set.
func (m *Matcher) Nearest(p Point) (row int, dist float64, ok bool) {
	if m.tree == nil {
		return 0, 0, false
	}
	got, d2 := m.tree.Nearest(treePoint{p: p})
	tp := got.(treePoint)
	return tp.row, math.Sqrt(d2), true
}

// Spacing returns the largest nearest-neighbor gap within the Set: the
// maximum over all rows of the distance to the closest other row. It is
// used as the automatic match threshold when snapping electrodes onto a
// model grid. Sets with fewer than two rows have zero spacing.
func (m *Matcher) Spacing() float64 {
	if m.tree == nil || m.set.Len() < 2 {
		return 0
	}
	var spacing float64
	for i, p := range m.set.pts {
		keeper := kdtree.NewNKeeper(2)
		m.tree.NearestSet(keeper, treePoint{p: p, row: i})
		for _, cd := range keeper.Heap {
			tp, ok := cd.Comparable.(treePoint)
			if !ok || tp.row == i {
				continue
			}
			if d := math.Sqrt(cd.Dist); d > spacing {
				spacing = d
			}
		}
	}
	return spacing
}

// MatchAll snaps every row of query onto its nearest row of the Matcher's
// Set, dropping rows farther away than threshold. A threshold <= 0 means
// the automatic threshold (Spacing of the reference set).
func (m *Matcher) MatchAll(query *Set, threshold float64) []Match {
	if m.tree == nil {
		return nil
	}
	if threshold <= 0 {
		threshold = m.Spacing()
	}
	var matches []Match
	for i, p := range query.pts {
		row, d, ok := m.Nearest(p)
		if !ok || d > threshold {
			continue
		}
		matches = append(matches, Match{QueryIndex: i, Index: row, Distance: d})
	}
	return matches
}

// treePoint adapts a Point (plus its row index) to kdtree.Comparable.
type treePoint struct {
	p   Point
	row int
}

func (a treePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	b := c.(treePoint)
	switch d {
	case 0:
		return a.p.X - b.p.X
	case 1:
		return a.p.Y - b.p.Y
	case 2:
		return a.p.Z - b.p.Z
	default:
		panic("locs: illegal dimension")
	}
}

func (a treePoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance, per kdtree convention.
func (a treePoint) Distance(c kdtree.Comparable) float64 {
	b := c.(treePoint)
	dx := a.p.X - b.p.X
	dy := a.p.Y - b.p.Y
	dz := a.p.Z - b.p.Z
	return dx*dx + dy*dy + dz*dz
}

type treePoints []treePoint

func (p treePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p treePoints) Len() int                      { return len(p) }
func (p treePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p treePoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(treePlane{treePoints: p, Dim: d}, kdtree.MedianOfRandoms(treePlane{treePoints: p, Dim: d}, 100))
}

// treePlane implements sort.Interface and kdtree.SortSlicer over one axis.
type treePlane struct {
	treePoints
	kdtree.Dim
}

func (p treePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.treePoints[i].p.X < p.treePoints[j].p.X
	case 1:
		return p.treePoints[i].p.Y < p.treePoints[j].p.Y
	case 2:
		return p.treePoints[i].p.Z < p.treePoints[j].p.Z
	default:
		panic("locs: illegal dimension")
	}
}

func (p treePlane) Slice(start, end int) kdtree.SortSlicer {
	return treePlane{treePoints: p.treePoints[start:end], Dim: p.Dim}
}

func (p treePlane) Swap(i, j int) {
	p.treePoints[i], p.treePoints[j] = p.treePoints[j], p.treePoints[i]
}
