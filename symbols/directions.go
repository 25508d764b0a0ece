package symbols

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spreadscan/spreadscan/shm"
)

// DirectionRecord is one arbitrage direction as written to
// generated/directions.json: a (spot source, futures source) pair and the
// symbols it applies to.
type DirectionRecord struct {
	DirectionID   uint8    `json:"direction_id"`
	SpotSource    uint8    `json:"spot_source"`
	FuturesSource uint8    `json:"futures_source"`
	Name          string   `json:"name"`
	Symbols       []uint16 `json:"symbols"`
}

// DirectionTable is the loaded direction universe.
type DirectionTable struct {
	Records []DirectionRecord
}

// LoadDirections reads generated/directions.json from the discovery output dir.
func LoadDirections(generatedDir string) (*DirectionTable, error) {
	path := filepath.Join(generatedDir, "directions.json")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []DirectionRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &DirectionTable{Records: records}, nil
}

// DirectionEntry points from one side of a direction to its counterpart
// source.
type DirectionEntry struct {
	DirectionID       uint8
	CounterpartSource uint8
}

// maxDirsPerSlot bounds how many directions any single (source, symbol)
// pair participates in.
const maxDirsPerSlot = 6

// SlotDirections is the fixed-size direction list for one (source, symbol)
// pair.
type SlotDirections struct {
	Entries [maxDirsPerSlot]DirectionEntry
	Count   uint8
}

func (d *SlotDirections) push(e DirectionEntry) {
	if int(d.Count) < maxDirsPerSlot {
		d.Entries[d.Count] = e
		d.Count++
	}
}

// SourceSymbolIndex is a flat (source × symbol) lookup built for the engine
// hot path: when a bitmap drain surfaces an update on (source, symbol), the
// engine needs every direction that pair participates in, in O(1).
type SourceSymbolIndex struct {
	lookup     []SlotDirections
	numSymbols uint16
}

// BuildIndex flattens a DirectionTable. Each direction contributes an entry
// on its spot side (counterpart = futures source) and its futures side
// (counterpart = spot source) for every symbol it covers.
func BuildIndex(dt *DirectionTable, numSymbols uint16) *SourceSymbolIndex {
	ix := &SourceSymbolIndex{
		lookup:     make([]SlotDirections, int(shm.NumSources)*int(numSymbols)),
		numSymbols: numSymbols,
	}
	for _, dir := range dt.Records {
		for _, symbolID := range dir.Symbols {
			if symbolID >= numSymbols || dir.SpotSource >= shm.NumSources || dir.FuturesSource >= shm.NumSources {
				continue
			}
			spot := int(dir.SpotSource)*int(numSymbols) + int(symbolID)
			ix.lookup[spot].push(DirectionEntry{
				DirectionID:       dir.DirectionID,
				CounterpartSource: dir.FuturesSource,
			})
			fut := int(dir.FuturesSource)*int(numSymbols) + int(symbolID)
			ix.lookup[fut].push(DirectionEntry{
				DirectionID:       dir.DirectionID,
				CounterpartSource: dir.SpotSource,
			})
		}
	}
	return ix
}

// Get returns the directions involving (source, symbol). Out-of-range pairs
// return an empty list.
func (ix *SourceSymbolIndex) Get(source uint8, symbolID uint16) SlotDirections {
	if source >= shm.NumSources || symbolID >= ix.numSymbols {
		return SlotDirections{}
	}
	return ix.lookup[int(source)*int(ix.numSymbols)+int(symbolID)]
}

// NumSymbols returns the universe size the index was built for.
func (ix *SourceSymbolIndex) NumSymbols() uint16 { return ix.numSymbols }
