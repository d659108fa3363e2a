package locs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherNearest(t *testing.T) {
	s := New([]Point{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}})
	m := NewMatcher(s)

	row, dist, ok := m.Nearest(Point{1, 0, 0})
	require.True(t, ok)
	assert.Equal(t, 0, row)
	assert.InDelta(t, 1.0, dist, 1e-12)

	row, dist, ok = m.Nearest(Point{10, 0, 0})
	require.True(t, ok)
	assert.Equal(t, 1, row)
	assert.InDelta(t, 0.0, dist, 1e-12)
}

func TestMatcherEmpty(t *testing.T) {
	m := NewMatcher(Empty())
	_, _, ok := m.Nearest(Point{0, 0, 0})
	assert.False(t, ok)
	assert.Zero(t, m.Spacing())
	assert.Nil(t, m.MatchAll(Empty(), 0))
}

func TestMatcherSpacing(t *testing.T) {
	// Gaps along x: 1 between the first pair, 4 to the last point. The
	// spacing is the largest nearest-neighbor distance, i.e. 4.
	s := New([]Point{{0, 0, 0}, {1, 0, 0}, {5, 0, 0}})
	m := NewMatcher(s)
	assert.InDelta(t, 4.0, m.Spacing(), 1e-12)
}

func TestMatchAll(t *testing.T) {
	ref := New([]Point{{0, 0, 0}, {10, 0, 0}})
	m := NewMatcher(ref)

	query := New([]Point{{0.5, 0, 0}, {10.2, 0, 0}, {50, 0, 0}})
	matches := m.MatchAll(query, 1.0)

	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Index)
	assert.Equal(t, 1, matches[1].Index)
	assert.InDelta(t, 0.5, matches[0].Distance, 1e-12)
}

func TestMatchAllAutoThreshold(t *testing.T) {
	ref := New([]Point{{0, 0, 0}, {2, 0, 0}})
	m := NewMatcher(ref)

	// Auto threshold equals the grid spacing (2), so a query 1.5 away
	// matches while one 3 away does not.
	query := New([]Point{{0, 1.5, 0}, {5, 0, 0}})
	matches := m.MatchAll(query, 0)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Index)
}
