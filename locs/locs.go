package locs

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidShape indicates a location table that is not n x 3.
type ErrInvalidShape struct {
	Rows int
	Cols int
}

func (e *ErrInvalidShape) Error() string {
	return fmt.Sprintf("locations must have exactly 3 columns (x, y, z): got %dx%d", e.Rows, e.Cols)
}

// Point is a single 3D location.
type Point struct {
	X, Y, Z float64
}

// Less reports whether p sorts before q under the canonical ordering
// (lexicographic on the coordinate tuple).
func (p Point) Less(q Point) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.Z < q.Z
}

// Set is a canonical, deduplicated, sorted set of locations.
// The zero value is not usable; use Empty, New, Unique or FromMatrix.
type Set struct {
	pts   []Point
	index map[Point]int
}

// Empty returns the set with zero rows.
func Empty() *Set {
	return &Set{index: map[Point]int{}}
}

// New builds a canonical Set from points, discarding the index map.
func New(points []Point) *Set {
	s, _ := Unique(points)
	return s
}

// Unique sorts and deduplicates points. The second return value maps each
// input row to its index in the canonical ordering. Unique is stable and
// idempotent: canonicalizing an already-canonical set is the identity.
func Unique(points []Point) (*Set, []int) {
	uniq := make([]Point, 0, len(points))
	seen := make(map[Point]struct{}, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Less(uniq[j]) })

	index := make(map[Point]int, len(uniq))
	for i, p := range uniq {
		index[p] = i
	}
	idx := make([]int, len(points))
	for i, p := range points {
		idx[i] = index[p]
	}
	return &Set{pts: uniq, index: index}, idx
}

// Union returns the canonical union of a and b. Union(a, a) equals a, and
// Union is commutative: the ordering rule is the same deterministic sort.
func Union(a, b *Set) *Set {
	merged := make([]Point, 0, a.Len()+b.Len())
	merged = append(merged, a.pts...)
	merged = append(merged, b.pts...)
	return New(merged)
}

// FromMatrix builds a canonical Set from an n x 3 coordinate matrix.
// The index map is as returned by Unique. A matrix with a column count
// other than 3 is a contract violation.
func FromMatrix(m mat.Matrix) (*Set, []int, error) {
	if m == nil {
		s, idx := Unique(nil)
		return s, idx, nil
	}
	r, c := m.Dims()
	if r > 0 && c != 3 {
		return nil, nil, &ErrInvalidShape{Rows: r, Cols: c}
	}
	points := make([]Point, r)
	for i := 0; i < r; i++ {
		points[i] = Point{X: m.At(i, 0), Y: m.At(i, 1), Z: m.At(i, 2)}
	}
	s, idx := Unique(points)
	return s, idx, nil
}

// Len returns the number of locations.
func (s *Set) Len() int {
	return len(s.pts)
}

// At returns the i-th location in canonical order.
func (s *Set) At(i int) Point {
	return s.pts[i]
}

// Points returns a copy of the canonical rows.
func (s *Set) Points() []Point {
	out := make([]Point, len(s.pts))
	copy(out, s.pts)
	return out
}

// IndexOf returns the canonical index of p, if present.
func (s *Set) IndexOf(p Point) (int, bool) {
	i, ok := s.index[p]
	return i, ok
}

// Contains reports whether p is a row of s.
func (s *Set) Contains(p Point) bool {
	_, ok := s.index[p]
	return ok
}

// Equal reports whether s and other hold exactly the same rows.
// Canonical ordering makes this a row-by-row comparison.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, p := range s.pts {
		if other.pts[i] != p {
			return false
		}
	}
	return true
}

// Overlap returns a bitmap over the rows of s marking those that also
// appear in other.
func (s *Set) Overlap(other *Set) *roaring.Bitmap {
	bm := roaring.New()
	for i, p := range s.pts {
		if other.Contains(p) {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// ContainsAll reports whether every row of other is a row of s.
func (s *Set) ContainsAll(other *Set) bool {
	for _, p := range other.pts {
		if !s.Contains(p) {
			return false
		}
	}
	return true
}

// Select returns the sub-set holding the rows of s at idx, re-canonicalized,
// plus the index map from idx positions to rows of the result.
func (s *Set) Select(idx []int) (*Set, []int, error) {
	points := make([]Point, len(idx))
	for i, j := range idx {
		if j < 0 || j >= len(s.pts) {
			return nil, nil, fmt.Errorf("location index %d out of range [0, %d)", j, len(s.pts))
		}
		points[i] = s.pts[j]
	}
	sub, m := Unique(points)
	return sub, m, nil
}

// Matrix returns the locations as an n x 3 dense matrix, or nil when empty.
func (s *Set) Matrix() *mat.Dense {
	if len(s.pts) == 0 {
		return nil
	}
	m := mat.NewDense(len(s.pts), 3, nil)
	for i, p := range s.pts {
		m.Set(i, 0, p.X)
		m.Set(i, 1, p.Y)
		m.Set(i, 2, p.Z)
	}
	return m
}

// String returns a short human-readable summary.
func (s *Set) String() string {
	return fmt.Sprintf("locs.Set(%d locations)", len(s.pts))
}
