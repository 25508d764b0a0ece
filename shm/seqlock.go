package shm

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// SeqLock protocol over a split seq/data slot pair.
//
// Writer: bump seq to odd, store the fields, bump seq to even. Reader: load
// seq (retry while odd), load the fields, reload seq; equal means the copy
// is consistent. Go's sync/atomic operations are sequentially consistent,
// which subsumes the release-on-publish / acquire-on-observe pairing the
// protocol needs; the field accesses go through atomics so the compiler can
// neither reorder nor elide them.

// maxReadRetries bounds a read attempt under writer contention. Exhausting
// the budget is an ordinary outcome, not an error: the caller skips this
// poll cycle.
const maxReadRetries = 4

// seqlockWrite publishes snap into data. Only the slot's owning writer may
// call this; the initial seq load therefore races with nothing.
func seqlockWrite(seq *uint64, data *PriceDataEntry, snap PriceSnapshot) {
	cur := atomic.LoadUint64(seq)
	atomic.StoreUint64(seq, cur+1) // odd: write in progress

	atomic.StoreUint64((*uint64)(unsafe.Pointer(&data.BestBid)), math.Float64bits(snap.BestBid))
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&data.BestAsk)), math.Float64bits(snap.BestAsk))
	atomic.StoreUint64(&data.UpdatedAt, snap.UpdatedAt)

	atomic.StoreUint64(seq, cur+2) // even: write complete, fields visible first
}

// seqlockRead copies a consistent snapshot out of data, or reports false if
// the writer stayed active for all maxReadRetries attempts.
func seqlockRead(seq *uint64, data *PriceDataEntry) (PriceSnapshot, bool) {
	for range maxReadRetries {
		s1 := atomic.LoadUint64(seq)
		if s1&1 != 0 {
			continue // write in progress
		}

		bid := math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(&data.BestBid))))
		ask := math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(&data.BestAsk))))
		ts := atomic.LoadUint64(&data.UpdatedAt)

		if atomic.LoadUint64(seq) == s1 {
			return PriceSnapshot{BestBid: bid, BestAsk: ask, UpdatedAt: ts}, true
		}
	}
	return PriceSnapshot{}, false
}

// readSeq loads the bare counter, for staleness checks that don't need the
// payload.
func readSeq(seq *uint64) uint64 {
	return atomic.LoadUint64(seq)
}
