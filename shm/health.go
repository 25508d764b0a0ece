package shm

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Health table: 16 cache-line slots, one per logical process. Each process
// writes only its own slot; monitors snapshot any slot at any time.
const (
	// HealthSlots is the fixed number of process slots.
	HealthSlots = 16

	healthSlotSize = 64
)

// Well-known slot assignments. Feed processes use their SourceID as slot.
const (
	ProcFeedBase  = 0 // slots 0..NumSources-1, one per source
	ProcEngine    = 8
	ProcTracker   = 9
	ProcDiscovery = 10
	ProcMonitor   = 11
)

// ProcessStatus is the coarse state a process reports about itself.
type ProcessStatus uint32

const (
	StatusUnknown ProcessStatus = iota
	StatusStarting
	StatusRunning
	StatusDegraded
	StatusStopped
)

func (s ProcessStatus) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusDegraded:
		return "degraded"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// statusFromU32 maps unrecognized values to Unknown so that newer writers
// don't confuse older monitors.
func statusFromU32(v uint32) ProcessStatus {
	if v > uint32(StatusStopped) {
		return StatusUnknown
	}
	return ProcessStatus(v)
}

type healthSlot struct {
	Status      uint32
	Connections uint32
	HeartbeatUS uint64
	MsgCount    uint64
	ErrCount    uint64
	UptimeSec   uint64
	_           [24]byte
}

func init() {
	if s := unsafe.Sizeof(healthSlot{}); s != healthSlotSize {
		panic(fmt.Sprintf("shm: healthSlot size is %d, expected %d", s, healthSlotSize))
	}
}

// HealthSize is the byte size of the health table segment.
func HealthSize() int { return HealthSlots * healthSlotSize }

// HealthSnapshot is a plain copy of one slot for display or alerting.
type HealthSnapshot struct {
	Status      ProcessStatus
	HeartbeatUS uint64
	MsgCount    uint64
	ErrCount    uint64
	Connections uint32
	UptimeSec   uint64
}

// HealthTable is the per-process heartbeat and counter table. Heartbeat and
// status use release/acquire so a monitor observing a fresh heartbeat also
// sees the status that accompanied it; the counters are monitoring-only and
// stay relaxed.
type HealthTable struct {
	seg *Segment
}

// CreateHealthTable creates the health segment, all slots zeroed (Unknown).
func CreateHealthTable(name string) (*HealthTable, error) {
	seg, err := CreateSegment(name, HealthSize())
	if err != nil {
		return nil, err
	}
	return &HealthTable{seg: seg}, nil
}

// OpenHealthTable maps an existing health segment.
func OpenHealthTable(name string) (*HealthTable, error) {
	seg, err := OpenSegment(name, HealthSize())
	if err != nil {
		return nil, err
	}
	return &HealthTable{seg: seg}, nil
}

func validSlot(id int) bool { return id >= 0 && id < HealthSlots }

func (h *HealthTable) slot(id int) *healthSlot {
	return (*healthSlot)(h.seg.ptr(uintptr(id) * healthSlotSize))
}

// SetStatus records the process status.
func (h *HealthTable) SetStatus(id int, status ProcessStatus) {
	if !validSlot(id) {
		return
	}
	atomic.StoreUint32(&h.slot(id).Status, uint32(status))
}

// Heartbeat records the latest liveness timestamp in microseconds.
func (h *HealthTable) Heartbeat(id int, timestampUS uint64) {
	if !validSlot(id) {
		return
	}
	atomic.StoreUint64(&h.slot(id).HeartbeatUS, timestampUS)
}

// IncMsgCount bumps the processed-message counter.
func (h *HealthTable) IncMsgCount(id int) {
	if !validSlot(id) {
		return
	}
	atomic.AddUint64(&h.slot(id).MsgCount, 1)
}

// IncErrCount bumps the error counter.
func (h *HealthTable) IncErrCount(id int) {
	if !validSlot(id) {
		return
	}
	atomic.AddUint64(&h.slot(id).ErrCount, 1)
}

// SetConnections records the number of active upstream connections.
func (h *HealthTable) SetConnections(id int, n uint32) {
	if !validSlot(id) {
		return
	}
	atomic.StoreUint32(&h.slot(id).Connections, n)
}

// SetUptime records the process uptime in seconds.
func (h *HealthTable) SetUptime(id int, sec uint64) {
	if !validSlot(id) {
		return
	}
	atomic.StoreUint64(&h.slot(id).UptimeSec, sec)
}

// Read snapshots one slot. Out-of-range ids read as a zero snapshot.
func (h *HealthTable) Read(id int) HealthSnapshot {
	if !validSlot(id) {
		return HealthSnapshot{}
	}
	s := h.slot(id)
	return HealthSnapshot{
		Status:      statusFromU32(atomic.LoadUint32(&s.Status)),
		HeartbeatUS: atomic.LoadUint64(&s.HeartbeatUS),
		MsgCount:    atomic.LoadUint64(&s.MsgCount),
		ErrCount:    atomic.LoadUint64(&s.ErrCount),
		Connections: atomic.LoadUint32(&s.Connections),
		UptimeSec:   atomic.LoadUint64(&s.UptimeSec),
	}
}

// ReadAll snapshots every slot in index order.
func (h *HealthTable) ReadAll() []HealthSnapshot {
	out := make([]HealthSnapshot, HealthSlots)
	for i := range out {
		out[i] = h.Read(i)
	}
	return out
}

// NumSlots returns the fixed slot count.
func (h *HealthTable) NumSlots() int { return HealthSlots }

// Close unmaps the segment.
func (h *HealthTable) Close() error { return h.seg.Close() }
