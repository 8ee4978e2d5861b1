package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-registry/internal/domain"
	"listing-registry/internal/ledger"
	"listing-registry/internal/mirror"
	"listing-registry/internal/observability"
	"listing-registry/internal/scan"
	"listing-registry/internal/solana"
	"listing-registry/internal/storage"
	chstore "listing-registry/internal/storage/clickhouse"
	"listing-registry/internal/storage/memory"
	"listing-registry/internal/storage/migrations"
	pgstore "listing-registry/internal/storage/postgres"
)

func main() {
	programIDStr := flag.String("program-id", "", "Listing registry program ID")
	configStr := flag.String("config", "", "Registry config account address")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (empty for rescan-only)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for listing snapshots")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the audit log")
	rescanInterval := flag.Duration("rescan-interval", 5*time.Minute, "Full rescan interval")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[mirror] ", log.LstdFlags|log.Lshortfile)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, *programIDStr, *configStr, *rpcEndpoint, *wsEndpoint,
		*postgresDSN, *clickhouseDSN, *rescanInterval, *useMemory)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, programIDStr, configStr, rpcEndpoint, wsEndpoint,
	postgresDSN, clickhouseDSN string, rescanInterval time.Duration, useMemory bool) error {

	if programIDStr == "" {
		return fmt.Errorf("--program-id is required")
	}
	if configStr == "" {
		return fmt.Errorf("--config is required")
	}
	if rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required")
	}

	programID, err := domain.ParsePubKey(programIDStr)
	if err != nil {
		return fmt.Errorf("parse program id: %w", err)
	}
	config, err := domain.ParsePubKey(configStr)
	if err != nil {
		return fmt.Errorf("parse config address: %w", err)
	}

	rpc := solana.NewHTTPClient(rpcEndpoint)
	client := ledger.NewRPCLedger(rpc)

	var ws solana.WSClient
	if wsEndpoint != "" {
		wsClient, err := solana.NewWSClient(ctx, wsEndpoint, nil)
		if err != nil {
			return fmt.Errorf("create websocket client: %w", err)
		}
		defer wsClient.Close()
		ws = wsClient
	}

	if !useMemory && postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	var listings storage.ListingStore = memory.NewListingStore()
	var transitions storage.TransitionStore = memory.NewTransitionStore()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}
		listings = pgstore.NewListingStore(pool)

		if clickhouseDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
			if err != nil {
				return fmt.Errorf("run clickhouse migrations: %w", err)
			}
			defer conn.Close()
			transitions = chstore.NewTransitionStore(conn)
		} else {
			logger.Println("No --clickhouse-dsn, keeping the audit log in memory")
		}
	}

	m := mirror.New(mirror.Options{
		ProgramID:      programID,
		Config:         config,
		Scanner:        scan.New(programID, client),
		WS:             ws,
		Listings:       listings,
		Transitions:    transitions,
		RescanInterval: rescanInterval,
		Logger:         logger,
	})

	logger.Printf("Mirroring program %s config %s", programID, config)
	return m.Run(ctx)
}
