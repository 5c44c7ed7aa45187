// Package telemetry exposes depth/volume/trade-count metrics over
// github.com/prometheus/client_golang, polling the engine's plain observer
// methods (Depth, Volume, BestBid/BestAsk) rather than the engine itself
// depending on a metrics library — see SPEC_FULL.md §11.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"venue/internal/common"
)

// Observable is the subset of engine.OrderBook telemetry polls.
type Observable interface {
	Depth(side common.Side) int
	Volume(side common.Side) decimal.Decimal
	BestBid() (decimal.Decimal, bool)
	BestAsk() (decimal.Decimal, bool)
	Tape() []common.Trade
}

// Collector holds the registered gauges/counters for one instrument.
type Collector struct {
	depth      *prometheus.GaugeVec
	volume     *prometheus.GaugeVec
	bestPrice  *prometheus.GaugeVec
	tradeCount prometheus.Counter

	lastTapeLen int
}

// NewCollector registers the metric family on the given registerer (pass
// prometheus.DefaultRegisterer in production, a fresh prometheus.NewRegistry
// in tests to avoid collisions across parallel test runs).
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		depth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venue_book_depth",
			Help: "Number of distinct resting price levels, by side.",
		}, []string{"side"}),
		volume: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venue_book_volume",
			Help: "Aggregate resting quantity, by side.",
		}, []string{"side"}),
		bestPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venue_book_best_price",
			Help: "Best resting price, by side.",
		}, []string{"side"}),
		tradeCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "venue_trades_total",
			Help: "Total number of trades executed.",
		}),
	}
}

// Poll samples ob once and updates every metric.
func (c *Collector) Poll(ob Observable) {
	for _, side := range []common.Side{common.Bid, common.Ask} {
		c.depth.WithLabelValues(side.String()).Set(float64(ob.Depth(side)))
		volume, _ := ob.Volume(side).Float64()
		c.volume.WithLabelValues(side.String()).Set(volume)
	}

	if bid, ok := ob.BestBid(); ok {
		price, _ := bid.Float64()
		c.bestPrice.WithLabelValues(common.Bid.String()).Set(price)
	}
	if ask, ok := ob.BestAsk(); ok {
		price, _ := ask.Float64()
		c.bestPrice.WithLabelValues(common.Ask.String()).Set(price)
	}

	tape := ob.Tape()
	if newTrades := len(tape) - c.lastTapeLen; newTrades > 0 {
		c.tradeCount.Add(float64(newTrades))
		c.lastTapeLen = len(tape)
	}
}

// Run polls ob on a fixed interval until ctx is cancelled.
func (c *Collector) Run(ctx context.Context, ob Observable, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("telemetry poller starting")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Poll(ob)
		}
	}
}
