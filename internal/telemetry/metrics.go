// Package telemetry exposes the process's Prometheus metrics on a private
// HTTP port, grounded on
// FOTONPHOTOS-PULSEINTEL/go_Stream/internal/metrics/prometheus_metrics.go
// (struct-of-vecs registered once at startup, served via a plain
// http.ServeMux, stopped gracefully at shutdown).
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters and gauges spec.md §6 Observability names.
type Metrics struct {
	TransactionsTotal prometheus.Counter
	FillsTotal        *prometheus.CounterVec
	CandlesTotal      *prometheus.CounterVec
	RPCErrorsTotal    *prometheus.CounterVec

	DBPoolSize      prometheus.Gauge
	DBPoolAvailable prometheus.Gauge
	FillsQueueLen   prometheus.Gauge

	server *http.Server
}

// New builds and registers every metric against the default process-wide
// Prometheus registry; a second call panics on duplicate registration.
func New() *Metrics {
	m := &Metrics{
		TransactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Total transactions fetched and decoded by partition workers.",
		}),
		FillsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fills_total",
			Help: "Total fills committed, by market.",
		}, []string{"market"}),
		CandlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candles_total",
			Help: "Total candles upserted, by market.",
		}, []string{"market"}),
		RPCErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_errors_total",
			Help: "Total RPC call failures, by method.",
		}, []string{"method"}),
		DBPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_size",
			Help: "Total connections in the database pool.",
		}),
		DBPoolAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_available",
			Help: "Idle connections currently available in the database pool.",
		}),
		FillsQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fills_queue_length",
			Help: "Unprocessed rows remaining across the transaction queue.",
		}),
	}

	prometheus.MustRegister(
		m.TransactionsTotal, m.FillsTotal, m.CandlesTotal, m.RPCErrorsTotal,
		m.DBPoolSize, m.DBPoolAvailable, m.FillsQueueLen,
	)

	return m
}

// Start serves /metrics on the given port until Stop is called.
func (m *Metrics) Start(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	m.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("[Metrics] server error: %v\n", err)
		}
	}()
}

// Stop gracefully shuts the metrics server down.
func (m *Metrics) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.server.Shutdown(shutdownCtx)
}
