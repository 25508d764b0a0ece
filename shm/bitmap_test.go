package shm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitmapSetAndSwap(t *testing.T) {
	useTempDir(t)

	bm, err := CreateUpdateBitmap("bm-basic")
	require.NoError(t, err)
	defer bm.Close()

	require.False(t, bm.HasUpdates(0))

	bm.Set(0, 0)
	require.True(t, bm.HasUpdates(0))

	// Word boundary: bit 63 stays in word 0, bit 64 routes to word 1.
	bm.Set(0, 63)
	bm.Set(0, 64)

	require.Equal(t, uint64(1)|uint64(1)<<63, bm.SwapWord(0, 0))
	require.Equal(t, uint64(1), bm.SwapWord(0, 1))
	require.False(t, bm.HasUpdates(0))
}

func TestBitmapSourceIndependence(t *testing.T) {
	useTempDir(t)

	bm, err := CreateUpdateBitmap("bm-sources")
	require.NoError(t, err)
	defer bm.Close()

	bm.Set(3, 100)
	require.False(t, bm.HasUpdates(0))
	require.True(t, bm.HasUpdates(3))

	require.Equal(t, uint64(1)<<(100%64), bm.SwapWord(3, 100/64))
	require.False(t, bm.HasUpdates(3))
}

func TestBitmapHighSymbols(t *testing.T) {
	useTempDir(t)

	bm, err := CreateUpdateBitmap("bm-high")
	require.NoError(t, err)
	defer bm.Close()

	// Last valid symbol lands in the last word of the block.
	bm.Set(7, MaxSymbols-1)
	require.Equal(t, uint64(1)<<63, bm.SwapWord(7, wordsPerBlock-1))
}

func TestBitmapSetIsCumulative(t *testing.T) {
	useTempDir(t)

	bm, err := CreateUpdateBitmap("bm-cumulative")
	require.NoError(t, err)
	defer bm.Close()

	bm.Set(1, 2)
	bm.Set(1, 2) // setting twice keeps one bit
	bm.Set(1, 5)
	require.Equal(t, uint64(1)<<2|uint64(1)<<5, bm.SwapWord(1, 0))
}

func TestBitmapOutOfRange(t *testing.T) {
	useTempDir(t)

	bm, err := CreateUpdateBitmap("bm-oob")
	require.NoError(t, err)
	defer bm.Close()

	bm.Set(NumSources, 0)
	bm.Set(0, MaxSymbols)
	require.False(t, bm.HasUpdates(NumSources))
	require.Zero(t, bm.SwapWord(NumSources, 0))
	require.Zero(t, bm.SwapWord(0, wordsPerBlock))
	require.Zero(t, bm.SwapWord(0, -1))

	for w := range bm.WordsPerBlock() {
		require.Zero(t, bm.SwapWord(0, w))
	}
}
