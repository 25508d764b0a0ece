package shm

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeqlockWriteRead(t *testing.T) {
	var seq uint64
	var data PriceDataEntry

	seqlockWrite(&seq, &data, PriceSnapshot{BestBid: 50000.0, BestAsk: 50001.0, UpdatedAt: 12345})

	snap, ok := seqlockRead(&seq, &data)
	require.True(t, ok)
	require.Equal(t, 50000.0, snap.BestBid)
	require.Equal(t, 50001.0, snap.BestAsk)
	require.Equal(t, uint64(12345), snap.UpdatedAt)

	// One complete write leaves the counter at 2.
	require.Equal(t, uint64(2), atomic.LoadUint64(&seq))
}

func TestSeqlockZeroSlotReads(t *testing.T) {
	var seq uint64
	var data PriceDataEntry

	// A never-written slot has seq 0 (even), so the read succeeds and yields
	// an all-zero, invalid snapshot.
	snap, ok := seqlockRead(&seq, &data)
	require.True(t, ok)
	require.Zero(t, snap.BestBid)
	require.Zero(t, snap.BestAsk)
	require.False(t, snap.Valid())
}

func TestSeqlockManyWrites(t *testing.T) {
	var seq uint64
	var data PriceDataEntry

	for i := 1; i <= 100; i++ {
		seqlockWrite(&seq, &data, PriceSnapshot{
			BestBid:   float64(i),
			BestAsk:   float64(i + 1),
			UpdatedAt: uint64(i),
		})
		snap, ok := seqlockRead(&seq, &data)
		require.True(t, ok)
		require.Equal(t, float64(i), snap.BestBid)
	}
	require.Equal(t, uint64(200), atomic.LoadUint64(&seq))
}

func TestSeqlockInProgressWriteBlocksRead(t *testing.T) {
	var seq uint64
	var data PriceDataEntry

	atomic.StoreUint64(&seq, 1) // odd: writer active, never finishes
	_, ok := seqlockRead(&seq, &data)
	require.False(t, ok)
}

func TestSeqlockNoTornReads(t *testing.T) {
	var seq uint64
	var data PriceDataEntry

	stop := make(chan struct{})
	done := make(chan struct{})

	// Writer: bid increases forever, ask is always bid+1. Any read mixing
	// two writes breaks that relation.
	go func() {
		defer close(done)
		i := uint64(1)
		for {
			select {
			case <-stop:
				return
			default:
			}
			seqlockWrite(&seq, &data, PriceSnapshot{
				BestBid:   float64(i * 1000),
				BestAsk:   float64(i*1000 + 1),
				UpdatedAt: i,
			})
			i++
		}
	}()

	reads := 0
	for range 100_000 {
		snap, ok := seqlockRead(&seq, &data)
		if !ok {
			continue // retry budget exhausted under write pressure
		}
		reads++
		if snap.BestAsk-snap.BestBid != 1.0 {
			t.Fatalf("torn read: bid=%v ask=%v", snap.BestBid, snap.BestAsk)
		}
	}
	close(stop)
	<-done

	require.Positive(t, reads, "expected some successful reads")
}

func TestReadSeq(t *testing.T) {
	var seq uint64
	require.Equal(t, uint64(0), readSeq(&seq))

	atomic.StoreUint64(&seq, 42)
	require.Equal(t, uint64(42), readSeq(&seq))
}
