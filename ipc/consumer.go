package ipc

import (
	"math/bits"

	"go.uber.org/zap"

	"github.com/spreadscan/spreadscan/shm"
)

// Update is one consumed price change: the slot that changed and the
// snapshot read from it.
type Update struct {
	SymbolID uint16
	SourceID uint8
	Snapshot shm.PriceSnapshot
}

// Consumer is the engine-side drain path. Exactly one Consumer drains a
// given source's bitmap block; the SPSC-style contract is per source, held
// by process-role assignment.
type Consumer struct {
	store  *shm.PriceStore
	bitmap *shm.UpdateBitmap
	log    *zap.Logger
}

// NewConsumer binds the drain path over an open store and bitmap.
func NewConsumer(store *shm.PriceStore, bitmap *shm.UpdateBitmap, log *zap.Logger) *Consumer {
	return &Consumer{store: store, bitmap: bitmap, log: log}
}

// Drain consumes every pending update for one source, invoking fn per
// consistent snapshot, and returns the number delivered. A slot whose read
// exhausts its retry budget keeps its bit set and is retried on the next
// poll cycle rather than lost.
func (c *Consumer) Drain(source uint8, fn func(Update)) int {
	if !c.bitmap.HasUpdates(source) {
		return 0
	}
	n := 0
	for w := 0; w < c.bitmap.WordsPerBlock(); w++ {
		word := c.bitmap.SwapWord(source, w)
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			word &^= 1 << bit
			symbolID := uint16(w*64 + bit)

			snap, ok := c.store.Read(symbolID, source)
			if !ok {
				c.bitmap.Set(source, symbolID)
				continue
			}
			fn(Update{SymbolID: symbolID, SourceID: source, Snapshot: snap})
			n++
		}
	}
	return n
}

// DrainAll drains every source in id order and returns the total delivered.
func (c *Consumer) DrainAll(fn func(Update)) int {
	n := 0
	for src := uint8(0); src < shm.NumSources; src++ {
		n += c.Drain(src, fn)
	}
	return n
}
