// cmd/server runs the full pipeline in one process: the signature
// scraper, the partition workers, one candle batcher per market, the
// metrics server, and the HTTP read API — the teacher's single-binary
// shape (cmd/server/main.go) kept as the default deployment, generalized
// from "HTTP API only" to "ingestion + candles + API", with the top-level
// task spawn grounded on original_source/src/worker/main.rs.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"openbook-candles/config"
	"openbook-candles/internal/candles"
	"openbook-candles/internal/database"
	"openbook-candles/internal/httpapi"
	"openbook-candles/internal/ingest"
	"openbook-candles/internal/market"
	"openbook-candles/internal/rpc/httprpc"
	"openbook-candles/internal/store"
	"openbook-candles/internal/telemetry"

	"github.com/joho/godotenv"
)

// batchInterval is how often each market's candle batcher runs a pass,
// grounded on spec.md §4.2.4's ~5s cadence.
const batchInterval = 5 * time.Second

// poolStatInterval matches original_source/src/worker/main.rs's 10-second
// pool-gauge refresh.
const poolStatInterval = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, cfg.DatabaseURL(), int32(cfg.PGMaxPoolConnections))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.DatabaseURL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	descriptors, err := market.LoadFile(cfg.MarketFilePath)
	if err != nil {
		log.Fatalf("Failed to load market file: %v", err)
	}

	rpcClient := httprpc.New(cfg.RPCURL, cfg.RateLimitRPS, cfg.RateLimitBurst)

	if err := market.Enrich(ctx, rpcClient, descriptors); err != nil {
		log.Fatalf("Failed to enrich market infos: %v", err)
	}
	marketsByAddr := market.ByName(descriptors)

	transactionsRepo := store.NewTransactions(db)
	candlesRepo := store.NewCandles(db)
	commit := store.NewCommit(db)

	metrics := telemetry.New()
	metrics.Start(cfg.MetricsPort)
	defer metrics.Stop(context.Background())

	instrumentedCandles := store.NewInstrumentedCandles(candlesRepo, metrics)

	var wg sync.WaitGroup

	scraper := ingest.NewScraper(rpcClient, transactionsRepo, httprpc.ProgramID(), cfg.NumPartitions)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scraper.RunLiveTail(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		olderThan := time.Now().UTC().Add(-cfg.BackfillWindow)
		if err := scraper.RunBackfill(ctx, olderThan); err != nil && ctx.Err() == nil {
			log.Printf("Backfill failed: %v", err)
		}
	}()

	for p := 0; p < cfg.NumPartitions; p++ {
		worker := ingest.NewWorker(p, rpcClient, transactionsRepo, commit, marketsByAddr, metrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	for _, d := range descriptors {
		marketAddr := d.Address
		wg.Add(1)
		go func() {
			defer wg.Done()
			candles.RunMarketBatcher(ctx, marketAddr, instrumentedCandles, batchInterval)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		reportPoolStats(ctx, db, transactionsRepo, metrics)
	}()

	e := httpapi.NewServer(db, candlesRepo, descriptors, cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		log.Printf("HTTP API listening on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	wg.Wait()
	log.Println("Shutdown complete")
}

func reportPoolStats(ctx context.Context, db *database.DB, transactions *store.Transactions, metrics *telemetry.Metrics) {
	ticker := time.NewTicker(poolStatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			size, available := db.Stat()
			metrics.DBPoolSize.Set(float64(size))
			metrics.DBPoolAvailable.Set(float64(available))

			if count, err := transactions.UnprocessedCount(ctx); err == nil {
				metrics.FillsQueueLen.Set(float64(count))
			}
		}
	}
}
