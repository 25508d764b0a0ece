package symbols

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spreadscan/spreadscan/shm"
)

func testRecords() []Record {
	btc := Record{SymbolID: 0, Name: "BTCUSDT"}
	btc.SourceNames[shm.BinanceSpot] = "BTCUSDT"
	btc.SourceNames[shm.OkxSpot] = "BTC-USDT"
	btc.SourceNames[shm.OkxFutures] = "BTC-USDT-SWAP"

	eth := Record{SymbolID: 1, Name: "ETHUSDT"}
	eth.SourceNames[shm.BinanceSpot] = "ETHUSDT"
	eth.SourceNames[shm.BinanceFutures] = "ETHUSDT"

	return []Record{btc, eth}
}

func TestTableResolve(t *testing.T) {
	table, err := NewTable(testRecords())
	require.NoError(t, err)
	require.Equal(t, uint16(2), table.NumSymbols())

	id, ok := table.Resolve(shm.OkxSpot, "BTC-USDT")
	require.True(t, ok)
	require.Equal(t, uint16(0), id)

	id, ok = table.Resolve(shm.BinanceFutures, "ETHUSDT")
	require.True(t, ok)
	require.Equal(t, uint16(1), id)

	// Same exchange name on a different source is a different key.
	_, ok = table.Resolve(shm.BinanceFutures, "BTCUSDT")
	require.False(t, ok)

	_, ok = table.Resolve(shm.SourceID(200), "BTCUSDT")
	require.False(t, ok)
}

func TestTableName(t *testing.T) {
	table, err := NewTable(testRecords())
	require.NoError(t, err)
	require.Equal(t, "BTCUSDT", table.Name(0))
	require.Equal(t, "ETHUSDT", table.Name(1))
	require.Equal(t, "", table.Name(2))
}

func TestSubscriptionList(t *testing.T) {
	table, err := NewTable(testRecords())
	require.NoError(t, err)

	subs := table.SubscriptionList(shm.BinanceSpot)
	require.Equal(t, []Sub{
		{SymbolID: 0, ExchangeName: "BTCUSDT"},
		{SymbolID: 1, ExchangeName: "ETHUSDT"},
	}, subs)

	subs = table.SubscriptionList(shm.OkxFutures)
	require.Equal(t, []Sub{{SymbolID: 0, ExchangeName: "BTC-USDT-SWAP"}}, subs)

	require.Empty(t, table.SubscriptionList(shm.MexcSpot))
	require.Nil(t, table.SubscriptionList(shm.SourceID(200)))
}

func TestNewTableRejectsBadInput(t *testing.T) {
	tooMany := make([]Record, shm.MaxSymbols+1)
	for i := range tooMany {
		tooMany[i].SymbolID = uint16(i)
	}
	_, err := NewTable(tooMany)
	require.Error(t, err)

	_, err = NewTable([]Record{{SymbolID: 5, Name: "GAP"}})
	require.Error(t, err, "id beyond record count")
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	b, err := json.Marshal(testRecords())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "symbols.json"), b, 0o644))

	table, err := LoadTable(dir)
	require.NoError(t, err)
	require.Equal(t, uint16(2), table.NumSymbols())
	require.Equal(t, "BTCUSDT", table.Name(0))
}

func TestLoadTableErrors(t *testing.T) {
	_, err := LoadTable(t.TempDir())
	require.Error(t, err, "missing file")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "symbols.json"), []byte("{broken"), 0o644))
	_, err = LoadTable(dir)
	require.Error(t, err, "malformed json")
}
