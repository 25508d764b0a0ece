// Package shm implements the shared memory substrate of the spread-scanner
// pipeline: named mmap'd segments holding the price store, update bitmap,
// event ring buffer, health table and control store. All cross-process
// synchronization is done with atomics over fixed 64-byte-aligned layouts;
// nothing in this package ever blocks.
package shm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// Dir is the directory backing named segments. Every process must resolve a
// segment name to the same file, so this is only overridden in tests.
var Dir = "/dev/shm"

// SegmentPath returns the backing file path for a segment name.
func SegmentPath(name string) string {
	return filepath.Join(Dir, name)
}

// Segment is a named, fixed-size shared memory region mapped read-write.
// The backing file outlives any single process; RemoveSegment is the only
// way a segment goes away.
type Segment struct {
	name string
	file *os.File
	mem  mmap.MMap
}

// CreateSegment creates (or truncates) the backing file, zero-fills it to
// size and maps it read-write. Called exactly once per segment, by the
// initializing process.
func CreateSegment(name string, size int) (*Segment, error) {
	path := SegmentPath(name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create shm %s: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("size shm %s to %d: %w", path, size, err)
	}
	mem, err := mmap.MapRegion(f, size, mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map shm %s: %w", path, err)
	}
	return &Segment{name: name, file: f, mem: mem}, nil
}

// OpenSegment maps an existing segment read-write. A backing file smaller
// than expected means the creator ran with a different layout, which is
// fatal to the opening process.
func OpenSegment(name string, expectedSize int) (*Segment, error) {
	path := SegmentPath(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open shm %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat shm %s: %w", path, err)
	}
	if fi.Size() < int64(expectedSize) {
		f.Close()
		return nil, fmt.Errorf("shm %s too small: expected %d, got %d", name, expectedSize, fi.Size())
	}
	mem, err := mmap.MapRegion(f, expectedSize, mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map shm %s: %w", path, err)
	}
	return &Segment{name: name, file: f, mem: mem}, nil
}

// RemoveSegment deletes the backing file. Idempotent: a missing segment is
// not an error.
func RemoveSegment(name string) error {
	err := os.Remove(SegmentPath(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove shm %s: %w", name, err)
	}
	return nil
}

// Name returns the segment name.
func (s *Segment) Name() string { return s.name }

// Size returns the mapped length in bytes.
func (s *Segment) Size() int { return len(s.mem) }

// ptr returns a pointer to offset off in the mapping. All offset arithmetic
// in this package funnels through here; callers bounds-check their indices
// before computing offsets.
func (s *Segment) ptr(off uintptr) unsafe.Pointer {
	return unsafe.Pointer(&s.mem[off])
}

// Close unmaps the region and closes the backing file. The segment itself
// stays in place for other processes.
func (s *Segment) Close() error {
	var first error
	if s.mem != nil {
		if err := s.mem.Unmap(); err != nil {
			first = err
		}
		s.mem = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && first == nil {
			first = err
		}
		s.file = nil
	}
	return first
}
