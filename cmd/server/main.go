// Command server wires together configuration, the matching engine, the TCP
// transport, telemetry and the market-data feed, replacing the teacher's
// cmd/main.go + cmd/server/server.go (which wired the grpc/old-protocol
// stack this repository drops — see DESIGN.md).
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"venue/internal/config"
	"venue/internal/engine"
	"venue/internal/marketdata"
	"venue/internal/telemetry"
	"venue/internal/transport"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load("venue", ".", "/etc/venue")
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	ob := engine.New(cfg.TickSize)

	hub := marketdata.NewHub()
	collector := telemetry.NewCollector(prometheus.DefaultRegisterer)

	srv := transport.New(cfg.ListenAddress, cfg.ListenPort, ob, cfg.WorkerPoolSize)

	go collector.Run(ctx, ob, time.Second)
	go serveMetrics(ctx, cfg.MetricsAddress, hub)
	go relayTapeToSubscribers(ctx, ob, hub, 100*time.Millisecond)

	log.Info().
		Str("listen", cfg.ListenAddress).
		Int("port", cfg.ListenPort).
		Str("tickSize", cfg.TickSize.String()).
		Msg("starting venue matching engine")

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
}

// relayTapeToSubscribers polls the engine's tape for newly appended trades
// and fans each one out to the market-data hub. Polling rather than a
// callback keeps the engine free of any transport/market-data dependency,
// the same separation telemetry.Collector.Poll uses for metrics.
func relayTapeToSubscribers(ctx context.Context, ob *engine.OrderBook, hub *marketdata.Hub, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tape := ob.Tape()
			for _, trade := range tape[seen:] {
				hub.Broadcast(trade)
			}
			seen = len(tape)
		}
	}
}

// serveMetrics exposes /metrics and the /marketdata websocket feed on the
// same side-channel HTTP listener, separate from the TCP order-entry port.
func serveMetrics(ctx context.Context, address string, hub *marketdata.Hub) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/marketdata", hub)

	httpSrv := &http.Server{Addr: address, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = httpSrv.Close()
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics/marketdata server exited")
	}
}
