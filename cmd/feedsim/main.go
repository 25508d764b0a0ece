// feedsim is a stand-in feed process: it writes random-walk quotes into the
// slots owned by one source, marks them in the update bitmap and keeps its
// health slot fresh. Useful for exercising the substrate without any
// exchange connectivity.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spreadscan/spreadscan/config"
	"github.com/spreadscan/spreadscan/ipc"
	"github.com/spreadscan/spreadscan/shm"
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

func nowUS() uint64 {
	return uint64(time.Now().UnixMicro())
}

func main() {
	configPath := flag.String("config", "config/config.toml", "path to config file")
	sourceID := flag.Uint("source", 0, "source id to simulate (0..7)")
	numSymbols := flag.Uint("symbols", 16, "number of symbols to quote")
	interval := flag.Duration("interval", 100*time.Millisecond, "tick interval")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := newLogger(cfg.General.LogLevel)
	defer log.Sync()

	if *sourceID >= shm.NumSources {
		log.Fatal("source out of range", zap.Uint("source", *sourceID))
	}
	if *numSymbols > shm.MaxSymbols {
		log.Fatal("symbols out of range", zap.Uint("symbols", *numSymbols))
	}
	source := shm.SourceID(*sourceID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g := cfg.General
	store, err := shm.OpenPriceStore(g.ShmSeqs, g.ShmData)
	if err != nil {
		log.Fatal("open price store", zap.Error(err))
	}
	defer store.Close()

	bitmap, err := shm.OpenUpdateBitmap(g.ShmBitmap)
	if err != nil {
		log.Fatal("open bitmap", zap.Error(err))
	}
	defer bitmap.Close()

	health, err := shm.OpenHealthTable(g.ShmHealth)
	if err != nil {
		log.Fatal("open health table", zap.Error(err))
	}
	defer health.Close()

	control, err := shm.OpenControlStore(g.ShmControl)
	if err != nil {
		log.Fatal("open control store", zap.Error(err))
	}
	defer control.Close()

	pub := ipc.NewPublisher(store, bitmap, health, source, log)
	pub.SetStatus(shm.StatusStarting)
	pub.SetConnections(1)

	// Mid prices drift with a random walk; spread stays a small fraction of
	// the mid.
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(source)*1000))
	mids := make([]float64, *numSymbols)
	for i := range mids {
		mids[i] = 10 + rng.Float64()*50000
	}

	tick := time.NewTicker(*interval)
	defer tick.Stop()
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	pub.SetStatus(shm.StatusRunning)
	log.Info("feedsim running",
		zap.Uint("symbols", *numSymbols),
		zap.Duration("interval", *interval))

	for {
		select {
		case <-ctx.Done():
			pub.SetStatus(shm.StatusStopped)
			log.Info("feedsim stopped")
			return
		case <-heartbeat.C:
			pub.Heartbeat(nowUS())
			if control.ShouldStop() {
				pub.SetStatus(shm.StatusStopped)
				log.Info("stop requested via control store")
				return
			}
		case <-tick.C:
			if control.IsPaused() {
				continue
			}
			ts := nowUS()
			for i := range mids {
				mids[i] += mids[i] * (rng.Float64() - 0.5) * 0.0002
				spread := mids[i] * (0.0001 + rng.Float64()*0.0004)
				pub.Publish(uint16(i), mids[i]-spread/2, mids[i]+spread/2, ts)
			}
		}
	}
}
