package shm

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestFixedLayoutSizes(t *testing.T) {
	require.Equal(t, uintptr(SlotSize), unsafe.Sizeof(PriceSeqEntry{}))
	require.Equal(t, uintptr(SlotSize), unsafe.Sizeof(PriceDataEntry{}))
	require.Equal(t, uintptr(SlotSize), unsafe.Sizeof(Event{}))
	require.Equal(t, uintptr(24), unsafe.Sizeof(EventHeader{}))
	require.Equal(t, uintptr(SlotSize), unsafe.Sizeof(healthSlot{}))
	require.Equal(t, uintptr(controlSize), unsafe.Sizeof(controlLayout{}))
	require.Equal(t, uintptr(storeHeaderSize), unsafe.Sizeof(storeHeader{}))
	require.LessOrEqual(t, signalPayloadSize, EventPayloadSize)
}

func TestSegmentSizes(t *testing.T) {
	require.Equal(t, storeHeaderSize+MaxSymbols*NumSources*SlotSize, StoreSize())
	require.Equal(t, NumSources*bitmapBlockSize, BitmapSize())
	require.Equal(t, ringHeaderSize+RingCapacity*SlotSize, RingSize())
	require.Equal(t, HealthSlots*healthSlotSize, HealthSize())
	require.Equal(t, 256, ControlSize())
}

func TestSourceID(t *testing.T) {
	require.Equal(t, "binance_spot", BinanceSpot.String())
	require.Equal(t, "okx_futures", OkxFutures.String())
	require.True(t, BinanceSpot.IsSpot())
	require.True(t, BinanceFutures.IsFutures())
	require.True(t, OkxSpot.IsSpot())
	require.False(t, OkxFutures.IsSpot())
}

func TestPriceSnapshotValid(t *testing.T) {
	require.True(t, PriceSnapshot{BestBid: 100, BestAsk: 101, UpdatedAt: 1}.Valid())
	require.True(t, PriceSnapshot{BestBid: 100, BestAsk: 100}.Valid())
	require.False(t, PriceSnapshot{BestBid: 0, BestAsk: 101}.Valid())
	require.False(t, PriceSnapshot{BestBid: 100, BestAsk: 0}.Valid())
	require.False(t, PriceSnapshot{BestBid: 102, BestAsk: 101}.Valid(), "crossed quote")
	require.False(t, PriceSnapshot{}.Valid())
}

func TestSignalPayloadRoundTrip(t *testing.T) {
	signal := SignalPayload{
		SymbolID:      42,
		DirectionID:   3,
		SpotSource:    uint8(OkxSpot),
		FuturesSource: uint8(MexcFutures),
		SpotAsk:       50000.5,
		FuturesBid:    50100.0,
		SpreadPct:     0.199,
	}

	ev := Event{Header: EventHeader{
		Timestamp:  12345,
		Sequence:   1,
		Type:       uint16(EventSpreadSignal),
		SourceProc: ProcEngine,
	}}
	signal.WriteToEvent(&ev)
	require.Equal(t, uint16(signalPayloadSize), ev.Header.PayloadLen)

	decoded, ok := SignalFromEvent(&ev)
	require.True(t, ok)
	require.Equal(t, signal, decoded)
}

func TestSignalFromEventRejects(t *testing.T) {
	var ev Event
	ev.Header.Type = uint16(EventTrackingSnapshot)
	ev.Header.PayloadLen = uint16(signalPayloadSize)
	_, ok := SignalFromEvent(&ev)
	require.False(t, ok, "wrong event type")

	ev.Header.Type = uint16(EventSpreadSignal)
	ev.Header.PayloadLen = uint16(signalPayloadSize - 1)
	_, ok = SignalFromEvent(&ev)
	require.False(t, ok, "truncated payload")
}
