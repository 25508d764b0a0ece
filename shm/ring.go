package shm

import "sync/atomic"

// Event ring buffer: single producer (engine), single consumer (tracker),
// 65536 fixed 64-byte event slots. The producer and consumer counters are
// monotonic and live on separate cache lines; slot position is the counter
// masked by capacity-1. Multi-producer or multi-consumer use is undefined —
// the SPSC contract is enforced by process roles, not by this type.
const (
	// RingCapacity is the number of event slots. Power of two.
	RingCapacity = 64 * 1024

	ringMask       = RingCapacity - 1
	ringHeaderSize = 128 // producer counter at 0, consumer counter at 64
)

// RingSize is the byte size of the event ring segment.
func RingSize() int {
	return ringHeaderSize + RingCapacity*SlotSize
}

// EventRing is a bounded SPSC queue of fixed-size events. Push and pop never
// block: fullness and emptiness are ordinary boolean outcomes and the caller
// owns any drop/backpressure policy.
type EventRing struct {
	seg *Segment
}

// CreateEventRing creates the ring segment with both counters at zero.
func CreateEventRing(name string) (*EventRing, error) {
	seg, err := CreateSegment(name, RingSize())
	if err != nil {
		return nil, err
	}
	return &EventRing{seg: seg}, nil
}

// OpenEventRing maps an existing ring segment.
func OpenEventRing(name string) (*EventRing, error) {
	seg, err := OpenSegment(name, RingSize())
	if err != nil {
		return nil, err
	}
	return &EventRing{seg: seg}, nil
}

func (r *EventRing) producer() *uint64 { return (*uint64)(r.seg.ptr(0)) }
func (r *EventRing) consumer() *uint64 { return (*uint64)(r.seg.ptr(64)) }

func (r *EventRing) slot(idx uint64) *Event {
	return (*Event)(r.seg.ptr(ringHeaderSize + uintptr(idx&ringMask)*SlotSize))
}

// Push appends an event. Returns false, without mutating anything, when the
// ring is full. Producer side only.
func (r *EventRing) Push(ev *Event) bool {
	prod := atomic.LoadUint64(r.producer()) // only this producer advances it
	cons := atomic.LoadUint64(r.consumer()) // acquire: consumer side advances it
	if prod-cons >= RingCapacity {
		return false
	}
	*r.slot(prod) = *ev
	atomic.StoreUint64(r.producer(), prod+1) // release: entry visible before index
	return true
}

// Pop removes the oldest event. Returns false when the ring is empty.
// Consumer side only.
func (r *EventRing) Pop() (Event, bool) {
	cons := atomic.LoadUint64(r.consumer()) // only this consumer advances it
	prod := atomic.LoadUint64(r.producer()) // acquire: producer side advances it
	if cons >= prod {
		return Event{}, false
	}
	ev := *r.slot(cons)
	atomic.StoreUint64(r.consumer(), cons+1) // release: slot free after index
	return ev, true
}

// Len returns the number of pending events.
func (r *EventRing) Len() int {
	prod := atomic.LoadUint64(r.producer())
	cons := atomic.LoadUint64(r.consumer())
	return int(prod - cons)
}

// Empty reports whether the ring has no pending events.
func (r *EventRing) Empty() bool { return r.Len() == 0 }

// Capacity returns the fixed slot count.
func (r *EventRing) Capacity() int { return RingCapacity }

// Close unmaps the segment.
func (r *EventRing) Close() error { return r.seg.Close() }
