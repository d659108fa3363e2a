// Package locs implements the location registry: canonical, deduplicated,
// deterministically ordered sets of 3D coordinates.
//
// A Set is immutable once built. Canonicalization sorts rows by their
// (x, y, z) tuple and removes exact duplicates; every constructor that
// reorders input also returns an index map so that matrices aligned to the
// old ordering can be re-permuted to the new one.
//
// Row equality is exact floating-point equality. Two rows that differ by
// measurement noise are distinct locations; callers that want tolerant
// matching use the kdtree-backed Matcher instead.
package locs
