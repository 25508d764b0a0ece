// Package symbols loads the symbol and direction tables generated by the
// discovery pipeline. The tables define the valid universe of symbol_id and
// source_id values used as indices into the shared memory substrate; feeds
// use them to resolve exchange-specific names, the engine to look up which
// arbitrage directions involve a given (source, symbol) pair.
package symbols

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spreadscan/spreadscan/shm"
)

// Record is one symbol as written to generated/symbols.json by discovery.
// Per-source arrays are indexed by SourceID; an empty source name means the
// symbol is not listed on that source.
type Record struct {
	SymbolID    uint16                  `json:"symbol_id"`
	Name        string                  `json:"name"`
	SourceNames [shm.NumSources]string  `json:"source_names"`
	MinQty      [shm.NumSources]float64 `json:"min_qty"`
	TickSize    [shm.NumSources]float64 `json:"tick_size"`
}

// Sub pairs a symbol id with its exchange-specific name, for building one
// source's subscription list.
type Sub struct {
	SymbolID     uint16
	ExchangeName string
}

// Table is the loaded symbol universe with lookups for both the hot path
// (id-based) and the warm path (name-based).
type Table struct {
	records      []Record
	exchangeToID [shm.NumSources]map[string]uint16
	idToName     []string
}

// NewTable builds a table from records, validating that the universe fits
// the substrate's fixed capacity.
func NewTable(records []Record) (*Table, error) {
	if len(records) > shm.MaxSymbols {
		return nil, fmt.Errorf("symbols: %d records exceed capacity %d", len(records), shm.MaxSymbols)
	}
	t := &Table{
		records:  records,
		idToName: make([]string, len(records)),
	}
	for i := range t.exchangeToID {
		t.exchangeToID[i] = make(map[string]uint16)
	}
	for _, rec := range records {
		if int(rec.SymbolID) >= len(records) {
			return nil, fmt.Errorf("symbols: id %d out of range for %d records", rec.SymbolID, len(records))
		}
		t.idToName[rec.SymbolID] = rec.Name
		for src, name := range rec.SourceNames {
			if name != "" {
				t.exchangeToID[src][name] = rec.SymbolID
			}
		}
	}
	return t, nil
}

// LoadTable reads generated/symbols.json from the discovery output dir.
func LoadTable(generatedDir string) (*Table, error) {
	path := filepath.Join(generatedDir, "symbols.json")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewTable(records)
}

// Resolve maps an exchange-specific symbol name on one source to its global
// symbol id.
func (t *Table) Resolve(source shm.SourceID, exchangeSymbol string) (uint16, bool) {
	if source >= shm.NumSources {
		return 0, false
	}
	id, ok := t.exchangeToID[source][exchangeSymbol]
	return id, ok
}

// Name returns the normalized name for a symbol id, or "" if out of range.
func (t *Table) Name(symbolID uint16) string {
	if int(symbolID) >= len(t.idToName) {
		return ""
	}
	return t.idToName[symbolID]
}

// NumSymbols returns the active universe size.
func (t *Table) NumSymbols() uint16 { return uint16(len(t.records)) }

// SubscriptionList returns every symbol listed on source, with its
// exchange-specific name.
func (t *Table) SubscriptionList(source shm.SourceID) []Sub {
	if source >= shm.NumSources {
		return nil
	}
	var subs []Sub
	for _, rec := range t.records {
		if name := rec.SourceNames[source]; name != "" {
			subs = append(subs, Sub{SymbolID: rec.SymbolID, ExchangeName: name})
		}
	}
	return subs
}
