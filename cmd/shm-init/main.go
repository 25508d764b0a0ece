// shm-init creates every shared memory segment of the pipeline. Oneshot:
// run once before any feed, engine or tracker process starts. Re-running it
// truncates the segments, so never run it while the pipeline is live.
package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spreadscan/spreadscan/config"
	"github.com/spreadscan/spreadscan/shm"
	"github.com/spreadscan/spreadscan/symbols"
)

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	log, err := cfg.Build()
	if err != nil {
		os.Exit(1)
	}
	return log
}

func main() {
	configPath := flag.String("config", "config/config.toml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := newLogger(cfg.General.LogLevel)
	defer log.Sync()

	g := cfg.General

	// The active universe size comes from the discovery output when present;
	// segment capacity is fixed either way.
	numSymbols := uint16(shm.MaxSymbols)
	if table, err := symbols.LoadTable(g.GeneratedDir); err == nil {
		numSymbols = table.NumSymbols()
		log.Info("loaded symbol table", zap.Uint16("num_symbols", numSymbols))
	} else {
		log.Warn("no symbol table, using full capacity", zap.Error(err))
	}

	store, err := shm.CreatePriceStore(g.ShmSeqs, g.ShmData, numSymbols)
	if err != nil {
		log.Fatal("create price store", zap.Error(err))
	}
	defer store.Close()
	log.Info("price store created",
		zap.String("seqs", g.ShmSeqs),
		zap.String("data", g.ShmData),
		zap.Uint16("num_symbols", store.NumSymbols()),
		zap.Int("bytes_each", shm.StoreSize()))

	bitmap, err := shm.CreateUpdateBitmap(g.ShmBitmap)
	if err != nil {
		log.Fatal("create bitmap", zap.Error(err))
	}
	defer bitmap.Close()
	log.Info("update bitmap created", zap.String("name", g.ShmBitmap), zap.Int("bytes", shm.BitmapSize()))

	ring, err := shm.CreateEventRing(g.ShmEvents)
	if err != nil {
		log.Fatal("create event ring", zap.Error(err))
	}
	defer ring.Close()
	log.Info("event ring created", zap.String("name", g.ShmEvents), zap.Int("capacity", ring.Capacity()), zap.Int("bytes", shm.RingSize()))

	health, err := shm.CreateHealthTable(g.ShmHealth)
	if err != nil {
		log.Fatal("create health table", zap.Error(err))
	}
	defer health.Close()
	log.Info("health table created", zap.String("name", g.ShmHealth), zap.Int("slots", health.NumSlots()))

	control, err := shm.CreateControlStore(g.ShmControl)
	if err != nil {
		log.Fatal("create control store", zap.Error(err))
	}
	defer control.Close()
	log.Info("control store created", zap.String("name", g.ShmControl))

	log.Info("all shared memory segments created")
}
