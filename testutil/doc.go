// Package testutil provides seeded random generators for tests: 3D
// location grids and synthetic observation series with valid correlation
// structure.
package testutil
