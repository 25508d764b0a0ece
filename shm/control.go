package shm

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Control store: three independent flags plus a monotonic config version in
// a single 256-byte segment. The flags widen to uint32 because Go's atomics
// have no sub-word operations; offsets are fixed by this layout for every
// process on the host.
const controlSize = 256

type controlLayout struct {
	Pause         uint32
	Kill          uint32
	Shutdown      uint32
	_             uint32
	ConfigVersion uint64
	_             [232]byte
}

func init() {
	if s := unsafe.Sizeof(controlLayout{}); s != controlSize {
		panic(fmt.Sprintf("shm: controlLayout size is %d, expected %d", s, controlSize))
	}
}

// ControlSize is the byte size of the control segment.
func ControlSize() int { return controlSize }

// ControlStore exposes the global pause/kill/shutdown flags and the config
// version counter bumped by the discovery pipeline when the symbol universe
// changes. The flags are not coordinated with each other; any process may
// set or poll any of them.
type ControlStore struct {
	seg *Segment
}

// CreateControlStore creates the control segment with all flags clear and
// config version 0.
func CreateControlStore(name string) (*ControlStore, error) {
	seg, err := CreateSegment(name, controlSize)
	if err != nil {
		return nil, err
	}
	return &ControlStore{seg: seg}, nil
}

// OpenControlStore maps an existing control segment.
func OpenControlStore(name string) (*ControlStore, error) {
	seg, err := OpenSegment(name, controlSize)
	if err != nil {
		return nil, err
	}
	return &ControlStore{seg: seg}, nil
}

func (c *ControlStore) layout() *controlLayout {
	return (*controlLayout)(c.seg.ptr(0))
}

func storeFlag(p *uint32, v bool) {
	var u uint32
	if v {
		u = 1
	}
	atomic.StoreUint32(p, u)
}

func loadFlag(p *uint32) bool {
	return atomic.LoadUint32(p) != 0
}

// IsPaused reports the global pause flag.
func (c *ControlStore) IsPaused() bool { return loadFlag(&c.layout().Pause) }

// SetPause sets or clears the global pause flag.
func (c *ControlStore) SetPause(v bool) { storeFlag(&c.layout().Pause, v) }

// IsKilled reports the kill switch.
func (c *ControlStore) IsKilled() bool { return loadFlag(&c.layout().Kill) }

// SetKillSwitch sets or clears the kill switch.
func (c *ControlStore) SetKillSwitch(v bool) { storeFlag(&c.layout().Kill, v) }

// IsShutdown reports the graceful shutdown flag.
func (c *ControlStore) IsShutdown() bool { return loadFlag(&c.layout().Shutdown) }

// SetShutdown sets or clears the graceful shutdown flag.
func (c *ControlStore) SetShutdown(v bool) { storeFlag(&c.layout().Shutdown, v) }

// ShouldStop reports whether any stop condition (kill or shutdown) is set.
func (c *ControlStore) ShouldStop() bool {
	return c.IsKilled() || c.IsShutdown()
}

// ConfigVersion returns the current config version.
func (c *ControlStore) ConfigVersion() uint64 {
	return atomic.LoadUint64(&c.layout().ConfigVersion)
}

// SetConfigVersion overwrites the config version.
func (c *ControlStore) SetConfigVersion(v uint64) {
	atomic.StoreUint64(&c.layout().ConfigVersion, v)
}

// IncrementConfigVersion bumps the counter and returns the new value.
func (c *ControlStore) IncrementConfigVersion() uint64 {
	return atomic.AddUint64(&c.layout().ConfigVersion, 1)
}

// Close unmaps the segment.
func (c *ControlStore) Close() error { return c.seg.Close() }
