// cmd/api runs only the read-only HTTP surface over the store — the
// independently deployable API half of the split production shape.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"openbook-candles/config"
	"openbook-candles/internal/database"
	"openbook-candles/internal/httpapi"
	"openbook-candles/internal/market"
	"openbook-candles/internal/store"

	"github.com/joho/godotenv"
)

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

	descriptors, err := market.LoadFile(cfg.MarketFilePath)
	if err != nil {
		log.Fatalf("Failed to load market file: %v", err)
	}

	candlesRepo := store.NewCandles(db)
	e := httpapi.NewServer(db, candlesRepo, descriptors, cfg.RateLimitRPS, cfg.RateLimitBurst)

	go func() {
		log.Printf("HTTP API listening on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}
	log.Println("Shutdown complete")
}
