package shm

import "sync/atomic"

// Update bitmap layout: one 128-byte block per source, 1024 bits = one bit
// per symbol. Feeds set bits after publishing a price; the engine swaps
// whole words to zero to consume up to 64 pending updates at a time.
const (
	bitmapBlockSize = 128
	wordsPerBlock   = bitmapBlockSize / 8
)

// BitmapSize is the byte size of the update bitmap segment.
func BitmapSize() int {
	return NumSources * bitmapBlockSize
}

// UpdateBitmap marks which (symbol, source) slots have pending, unconsumed
// price updates. Set is called by each slot's owning writer; SwapWord and
// HasUpdates by the single designated consumer per source.
type UpdateBitmap struct {
	seg *Segment
}

// CreateUpdateBitmap creates the bitmap segment, all bits clear.
func CreateUpdateBitmap(name string) (*UpdateBitmap, error) {
	seg, err := CreateSegment(name, BitmapSize())
	if err != nil {
		return nil, err
	}
	return &UpdateBitmap{seg: seg}, nil
}

// OpenUpdateBitmap maps an existing bitmap segment.
func OpenUpdateBitmap(name string) (*UpdateBitmap, error) {
	seg, err := OpenSegment(name, BitmapSize())
	if err != nil {
		return nil, err
	}
	return &UpdateBitmap{seg: seg}, nil
}

func (b *UpdateBitmap) word(sourceID uint8, wordIdx int) *uint64 {
	return (*uint64)(b.seg.ptr(uintptr(sourceID)*bitmapBlockSize + uintptr(wordIdx)*8))
}

// Set marks symbolID dirty on sourceID. The atomic OR publishes the bit
// after the writer's preceding price store write.
func (b *UpdateBitmap) Set(sourceID uint8, symbolID uint16) {
	if !slotInRange(symbolID, sourceID) {
		return
	}
	atomic.OrUint64(b.word(sourceID, int(symbolID)/64), 1<<(uint(symbolID)%64))
}

// SwapWord exchanges one word to zero and returns the previous value,
// draining up to 64 pending symbols in a single atomic op. Out-of-range
// arguments return 0.
func (b *UpdateBitmap) SwapWord(sourceID uint8, wordIdx int) uint64 {
	if sourceID >= NumSources || wordIdx < 0 || wordIdx >= wordsPerBlock {
		return 0
	}
	return atomic.SwapUint64(b.word(sourceID, wordIdx), 0)
}

// HasUpdates scans the source's words for any set bit: a cheap short-circuit
// before a full SwapWord pass.
func (b *UpdateBitmap) HasUpdates(sourceID uint8) bool {
	if sourceID >= NumSources {
		return false
	}
	for w := range wordsPerBlock {
		if atomic.LoadUint64(b.word(sourceID, w)) != 0 {
			return true
		}
	}
	return false
}

// WordsPerBlock returns the number of uint64 words in each source block.
func (b *UpdateBitmap) WordsPerBlock() int { return wordsPerBlock }

// Close unmaps the segment.
func (b *UpdateBitmap) Close() error { return b.seg.Close() }
