package shm

import (
	"fmt"
	"unsafe"
)

// Price store header and layout. The store is split across two segments of
// identical geometry: a 64-byte header followed by MaxSymbols*NumSources
// 64-byte entries, sequence counters in one region and price payloads in the
// other, so the lock metadata and the data never share cache lines.
const (
	storeHeaderSize = 64

	magicSeqs    uint32 = 0x53455153 // "SEQS"
	magicData    uint32 = 0x44415441 // "DATA"
	storeVersion uint32 = 1
)

type storeHeader struct {
	Magic      uint32
	Version    uint32
	NumSymbols uint16
	_          [54]byte
}

func init() {
	if s := unsafe.Sizeof(storeHeader{}); s != storeHeaderSize {
		panic(fmt.Sprintf("shm: storeHeader size is %d, expected %d", s, storeHeaderSize))
	}
}

// StoreSize is the byte size of each price store segment.
func StoreSize() int {
	return storeHeaderSize + MaxSymbols*NumSources*SlotSize
}

// slotOffset maps (symbol, source) to the byte offset of its entry, the same
// in both regions. Pure; all store indexing goes through it.
func slotOffset(symbolID uint16, sourceID uint8) uintptr {
	return storeHeaderSize + (uintptr(symbolID)*NumSources+uintptr(sourceID))*SlotSize
}

// slotInRange guards every public (symbol, source) entry point: the symbol
// universe comes from an external pipeline and is not trusted as an index.
func slotInRange(symbolID uint16, sourceID uint8) bool {
	return symbolID < MaxSymbols && sourceID < NumSources
}

// PriceStore holds the best-bid/ask slot matrix. One writer per
// (symbol, source) slot, any number of readers; that ownership split is a
// deployment contract, not enforced here.
type PriceStore struct {
	seqs *Segment
	data *Segment
}

// CreatePriceStore allocates both regions and stamps their headers.
// numSymbols records the active universe size for consumers; capacity is
// always MaxSymbols.
func CreatePriceStore(seqsName, dataName string, numSymbols uint16) (*PriceStore, error) {
	size := StoreSize()
	seqs, err := CreateSegment(seqsName, size)
	if err != nil {
		return nil, err
	}
	data, err := CreateSegment(dataName, size)
	if err != nil {
		seqs.Close()
		return nil, err
	}
	writeStoreHeader(seqs, magicSeqs, numSymbols)
	writeStoreHeader(data, magicData, numSymbols)
	return &PriceStore{seqs: seqs, data: data}, nil
}

// OpenPriceStore maps both regions and validates their headers. A magic or
// version mismatch means the creator ran an incompatible layout; opening
// must fail rather than read garbage.
func OpenPriceStore(seqsName, dataName string) (*PriceStore, error) {
	size := StoreSize()
	seqs, err := OpenSegment(seqsName, size)
	if err != nil {
		return nil, err
	}
	data, err := OpenSegment(dataName, size)
	if err != nil {
		seqs.Close()
		return nil, err
	}
	if err := checkStoreHeader(seqs, magicSeqs); err != nil {
		seqs.Close()
		data.Close()
		return nil, fmt.Errorf("shm %s: %w", seqsName, err)
	}
	if err := checkStoreHeader(data, magicData); err != nil {
		seqs.Close()
		data.Close()
		return nil, fmt.Errorf("shm %s: %w", dataName, err)
	}
	return &PriceStore{seqs: seqs, data: data}, nil
}

func writeStoreHeader(s *Segment, magic uint32, numSymbols uint16) {
	h := (*storeHeader)(s.ptr(0))
	h.Magic = magic
	h.Version = storeVersion
	h.NumSymbols = numSymbols
}

func checkStoreHeader(s *Segment, magic uint32) error {
	h := (*storeHeader)(s.ptr(0))
	if h.Magic != magic {
		return fmt.Errorf("magic mismatch: got %#x, want %#x", h.Magic, magic)
	}
	if h.Version != storeVersion {
		return fmt.Errorf("version mismatch: got %d, want %d", h.Version, storeVersion)
	}
	return nil
}

// NumSymbols returns the active universe size recorded at creation.
func (ps *PriceStore) NumSymbols() uint16 {
	return (*storeHeader)(ps.seqs.ptr(0)).NumSymbols
}

func (ps *PriceStore) seqEntry(symbolID uint16, sourceID uint8) *PriceSeqEntry {
	return (*PriceSeqEntry)(ps.seqs.ptr(slotOffset(symbolID, sourceID)))
}

func (ps *PriceStore) dataEntry(symbolID uint16, sourceID uint8) *PriceDataEntry {
	return (*PriceDataEntry)(ps.data.ptr(slotOffset(symbolID, sourceID)))
}

// Write publishes a snapshot into the (symbol, source) slot. Wait-free.
// Out-of-range indices are ignored.
func (ps *PriceStore) Write(symbolID uint16, sourceID uint8, snap PriceSnapshot) {
	if !slotInRange(symbolID, sourceID) {
		return
	}
	seqlockWrite(&ps.seqEntry(symbolID, sourceID).Seq, ps.dataEntry(symbolID, sourceID), snap)
}

// Read copies a consistent snapshot out of the slot. ok is false for
// out-of-range indices or when the retry budget was exhausted under write
// pressure; the latter is an expected outcome, not an error.
func (ps *PriceStore) Read(symbolID uint16, sourceID uint8) (snap PriceSnapshot, ok bool) {
	if !slotInRange(symbolID, sourceID) {
		return PriceSnapshot{}, false
	}
	return seqlockRead(&ps.seqEntry(symbolID, sourceID).Seq, ps.dataEntry(symbolID, sourceID))
}

// ReadSeq returns the raw sequence counter of a slot, for cheap staleness
// checks without touching the payload. Out-of-range indices read as 0.
func (ps *PriceStore) ReadSeq(symbolID uint16, sourceID uint8) uint64 {
	if !slotInRange(symbolID, sourceID) {
		return 0
	}
	return readSeq(&ps.seqEntry(symbolID, sourceID).Seq)
}

// Close unmaps both regions.
func (ps *PriceStore) Close() error {
	err := ps.seqs.Close()
	if err2 := ps.data.Close(); err == nil {
		err = err2
	}
	return err
}
