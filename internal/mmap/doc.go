// Package mmap provides read-only memory-mapped file access for zero-copy
// snapshot loading.
//
// # Usage
//
//	m, err := mmap.Open("model.cfm")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to file contents
//	data := m.Bytes()
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// # Thread Safety
//
// Mapping is safe for concurrent read access. Close is idempotent and
// protected by atomic operations, but callers must ensure no goroutines
// touch Bytes() after Close returns.
package mmap
