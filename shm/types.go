package shm

import (
	"fmt"
	"unsafe"
)

// Capacity constants shared by every process that maps the segments.
// Changing either changes every segment layout, so all binaries must be
// rebuilt together.
const (
	MaxSymbols = 1024
	NumSources = 8

	// SlotSize is the size of every fixed-layout record (one cache line).
	SlotSize = 64
)

// SourceID identifies one (exchange, market) feed. Each source owns one
// column of Price Store slots and one Update Bitmap block.
type SourceID uint8

const (
	BinanceSpot SourceID = iota
	BinanceFutures
	BybitSpot
	BybitFutures
	MexcSpot
	MexcFutures
	OkxSpot
	OkxFutures
)

var sourceNames = [NumSources]string{
	"binance_spot", "binance_futures",
	"bybit_spot", "bybit_futures",
	"mexc_spot", "mexc_futures",
	"okx_spot", "okx_futures",
}

func (s SourceID) String() string {
	if s < NumSources {
		return sourceNames[s]
	}
	return fmt.Sprintf("source_%d", uint8(s))
}

// IsSpot reports whether the source is a spot market (even IDs by convention).
func (s SourceID) IsSpot() bool { return s%2 == 0 }

// IsFutures reports whether the source is a futures market.
func (s SourceID) IsFutures() bool { return !s.IsSpot() }

// PriceSeqEntry is one SeqLock counter, padded to a full cache line so that
// adjacent slots written by different feed processes never share a line.
// Even value = stable, odd value = write in progress.
type PriceSeqEntry struct {
	Seq uint64
	_   [56]byte
}

// PriceDataEntry is the payload half of a price slot, padded to a cache line.
type PriceDataEntry struct {
	BestBid   float64
	BestAsk   float64
	UpdatedAt uint64
	_         [40]byte
}

// PriceSnapshot is a plain value copied out of a slot by a consistent read.
type PriceSnapshot struct {
	BestBid   float64
	BestAsk   float64
	UpdatedAt uint64
}

// Valid reports whether the snapshot carries a usable quote. A zeroed slot
// (never written) reads back as an invalid snapshot.
func (s PriceSnapshot) Valid() bool {
	return s.BestBid > 0 && s.BestAsk > 0 && s.BestBid <= s.BestAsk
}

// EventType tags the payload interpretation of a ring buffer event.
type EventType uint16

const (
	EventSpreadSignal     EventType = 1
	EventTrackingSnapshot EventType = 2
)

// EventHeader is the fixed 24-byte prefix of every event. Field order keeps
// the uint64s 8-byte aligned with no implicit padding.
type EventHeader struct {
	Timestamp  uint64
	Sequence   uint64
	Type       uint16
	SourceProc uint8
	_          uint8
	PayloadLen uint16
	_          [2]byte
}

// EventPayloadSize is the opaque payload area following the header.
const EventPayloadSize = 40

// Event is the fixed 64-byte record flowing through the ring buffer.
type Event struct {
	Header  EventHeader
	Payload [EventPayloadSize]byte
}

// SignalPayload is the EventSpreadSignal payload: a spread crossing between a
// spot ask and a futures bid on one symbol.
type SignalPayload struct {
	SymbolID      uint16
	DirectionID   uint8
	SpotSource    uint8
	FuturesSource uint8
	_             [3]byte
	SpotAsk       float64
	FuturesBid    float64
	SpreadPct     float64
}

const signalPayloadSize = int(unsafe.Sizeof(SignalPayload{}))

// WriteToEvent copies the payload into the event and stamps PayloadLen.
// The event type is left to the caller.
func (p SignalPayload) WriteToEvent(e *Event) {
	*(*SignalPayload)(unsafe.Pointer(&e.Payload[0])) = p
	e.Header.PayloadLen = uint16(signalPayloadSize)
}

// SignalFromEvent decodes the payload of an EventSpreadSignal event.
// Returns false for other event types or truncated payloads.
func SignalFromEvent(e *Event) (SignalPayload, bool) {
	if EventType(e.Header.Type) != EventSpreadSignal {
		return SignalPayload{}, false
	}
	if int(e.Header.PayloadLen) < signalPayloadSize {
		return SignalPayload{}, false
	}
	return *(*SignalPayload)(unsafe.Pointer(&e.Payload[0])), true
}

// Layout contracts. A mismatch here means the binary would corrupt segments
// shared with other processes, so fail before any segment is touched.
func init() {
	if s := unsafe.Sizeof(PriceSeqEntry{}); s != SlotSize {
		panic(fmt.Sprintf("shm: PriceSeqEntry size is %d, expected %d", s, SlotSize))
	}
	if s := unsafe.Sizeof(PriceDataEntry{}); s != SlotSize {
		panic(fmt.Sprintf("shm: PriceDataEntry size is %d, expected %d", s, SlotSize))
	}
	if s := unsafe.Sizeof(Event{}); s != SlotSize {
		panic(fmt.Sprintf("shm: Event size is %d, expected %d", s, SlotSize))
	}
	if s := unsafe.Sizeof(EventHeader{}); s != 24 {
		panic(fmt.Sprintf("shm: EventHeader size is %d, expected 24", s))
	}
	if signalPayloadSize > EventPayloadSize {
		panic(fmt.Sprintf("shm: SignalPayload size %d exceeds payload area %d", signalPayloadSize, EventPayloadSize))
	}
}
