// Package ipc wires the shm primitives into the process-facing write and
// drain paths: a feed publishes a quote through Publisher, the engine pulls
// pending updates through Consumer. Neither side ever blocks.
package ipc

import (
	"time"

	"go.uber.org/zap"

	"github.com/spreadscan/spreadscan/shm"
)

// Publisher is the feed-side write path for one source: price slot first,
// then the bitmap bit (so a consumer that sees the bit also sees the data),
// then the health counter. One Publisher per feed process.
type Publisher struct {
	store  *shm.PriceStore
	bitmap *shm.UpdateBitmap
	health *shm.HealthTable
	source shm.SourceID
	slot   int
	start  time.Time
	log    *zap.Logger
}

// NewPublisher binds a source's write path. The health slot is the source id
// by convention.
func NewPublisher(store *shm.PriceStore, bitmap *shm.UpdateBitmap, health *shm.HealthTable, source shm.SourceID, log *zap.Logger) *Publisher {
	return &Publisher{
		store:  store,
		bitmap: bitmap,
		health: health,
		source: source,
		slot:   shm.ProcFeedBase + int(source),
		start:  time.Now(),
		log:    log.With(zap.Stringer("source", source)),
	}
}

// Source returns the source this publisher writes for.
func (p *Publisher) Source() shm.SourceID { return p.source }

// Publish writes a quote into the owned (symbol, source) slot and marks it
// pending. Wait-free; out-of-range symbols are counted as errors and dropped.
func (p *Publisher) Publish(symbolID uint16, bid, ask float64, timestampUS uint64) {
	if symbolID >= shm.MaxSymbols {
		p.health.IncErrCount(p.slot)
		return
	}
	p.store.Write(symbolID, uint8(p.source), shm.PriceSnapshot{
		BestBid:   bid,
		BestAsk:   ask,
		UpdatedAt: timestampUS,
	})
	p.bitmap.Set(uint8(p.source), symbolID)
	p.health.IncMsgCount(p.slot)
}

// SetStatus records the feed's process status.
func (p *Publisher) SetStatus(status shm.ProcessStatus) {
	p.health.SetStatus(p.slot, status)
	p.log.Info("status changed", zap.Stringer("status", status))
}

// Heartbeat stamps liveness and uptime. Called periodically by the feed's
// main loop.
func (p *Publisher) Heartbeat(timestampUS uint64) {
	p.health.Heartbeat(p.slot, timestampUS)
	p.health.SetUptime(p.slot, uint64(time.Since(p.start).Seconds()))
}

// SetConnections records the feed's active upstream connection count.
func (p *Publisher) SetConnections(n uint32) {
	p.health.SetConnections(p.slot, n)
}

// ReportError bumps the feed's error counter.
func (p *Publisher) ReportError() {
	p.health.IncErrCount(p.slot)
}
