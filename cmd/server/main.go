// Package main runs the ledger service: the executor behind an HTTP API with
// health, status and Prometheus metrics endpoints.
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
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"diamond-token/internal/api"
	"diamond-token/internal/attest"
	"diamond-token/internal/config"
	"diamond-token/internal/domain"
	"diamond-token/internal/executor"
	"diamond-token/internal/ledger"
	"diamond-token/internal/observability"
	"diamond-token/internal/oracle"
	"diamond-token/internal/pricing"
	"diamond-token/internal/solana"
	"diamond-token/internal/storage"
	chstore "diamond-token/internal/storage/clickhouse"
	"diamond-token/internal/storage/memory"
	"diamond-token/internal/storage/migrations"
	pgstore "diamond-token/internal/storage/postgres"
)

// stores holds the storage implementations the executor runs on.
type stores struct {
	state     storage.StateStore
	events    storage.EventStore
	analytics storage.EventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Parse flags (env vars as defaults)
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "HTTP listen address")
	storageKind := flag.String("storage", cfg.Storage, "Storage backend (memory, postgres)")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string (optional analytics mirror)")
	oracleSource := flag.String("oracle", cfg.Oracle.Source, "Native price source (hermes, stream, static)")
	flag.Parse()

	cfg.HTTPAddr = *httpAddr
	cfg.Storage = *storageKind
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN
	cfg.Oracle.Source = *oracleSource
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)
	metrics := observability.NewMetrics(cfg.Namespace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	priceSource, closeOracle, err := createOracle(ctx, cfg.Oracle)
	if err != nil {
		logger.Fatalf("Failed to create oracle: %v", err)
	}
	defer closeOracle()

	// Callers over HTTP must sign every mutating request.
	engine := ledger.NewEngine(
		ledger.WithProgramID(cfg.Program()),
		ledger.WithPricing(pricing.NewEngine(pricing.DefaultConfig(),
			oracle.NewInstrumented(priceSource, cfg.Oracle.Source, metrics))),
		ledger.WithCallerSignatures(),
	)

	exec := executor.New(executor.Options{
		Engine:    engine,
		State:     st.state,
		Events:    st.events,
		Analytics: st.analytics,
		Metrics:   metrics,
		Logger:    log.New(os.Stdout, "[ledger] ", log.LstdFlags|log.Lshortfile),
	})

	srv := api.New(api.Options{
		Ledger:  exec,
		Logger:  log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
		Storage: cfg.Storage,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Printf("Starting HTTP server on %s (storage=%s, oracle=%s, program=%s)",
			cfg.HTTPAddr, cfg.Storage, cfg.Oracle.Source, cfg.Program())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.RPCEndpoint != "" {
		attestor := attest.New(solana.NewHTTPClient(cfg.RPCEndpoint), attest.Options{
			Metrics: metrics,
			Logger:  log.New(os.Stdout, "[attest] ", log.LstdFlags|log.Lshortfile),
		})
		g.Go(func() error {
			runAttestations(gctx, attestor, exec, cfg.AttestInterval, logger)
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				metrics.UptimeSeconds.Inc()
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// runAttestations checks the on-chain reserve every interval and appends
// covered attestations to the record log.
func runAttestations(ctx context.Context, attestor *attest.Attestor, exec *executor.Executor, interval time.Duration, logger *log.Logger) {
	logger.Printf("Starting chain attestation (interval: %v)...", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := exec.Snapshot(ctx)
		if errors.Is(err, domain.ErrNotInitialized) {
			continue
		}
		if err != nil {
			logger.Printf("Attestation skipped: %v", err)
			continue
		}

		report, err := attestor.Attest(ctx, attest.Target{
			Mint:        snap.State.Mint,
			Vault:       snap.State.Vault,
			ReserveMint: exec.Engine().Pricing().Config().ReserveMint,
		})
		if err != nil {
			logger.Printf("Attestation failed: %v", err)
			continue
		}

		record, err := report.Record()
		if err != nil {
			logger.Printf("Attestation record: %v", err)
			continue
		}
		if events := exec.Events(); events != nil {
			if err := events.Append(ctx, []*domain.Event{record}); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				logger.Printf("Append attestation: %v", err)
			}
		}
		logger.Printf("Reserve covered at slot %d: %d >= %d", report.Slot, report.ActualReserve, report.ExpectedReserve)
	}
}

// createStores builds the configured backend. ClickHouse, when configured,
// mirrors records for analytics in either mode.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*stores, func(), error) {
	var (
		st       stores
		closers  []func()
		closeAll = func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	)

	switch cfg.Storage {
	case config.StorageMemory:
		events := memory.NewEventStore()
		st.state = memory.NewStateStore(events)
		st.events = events
		logger.Println("Using in-memory storage; state is lost on exit")

	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if _, err := migrations.RunPostgresMigrations(ctx, pool.Pool, logger); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		if err := pool.CheckSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		st.state = pgstore.NewStateStore(pool)
		st.events = pgstore.NewEventStore(pool)
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		st.analytics = chstore.NewEventStore(conn)
	}

	return &st, closeAll, nil
}

// createOracle builds the native asset price source.
func createOracle(ctx context.Context, cfg config.OracleConfig) (oracle.Oracle, func(), error) {
	switch cfg.Source {
	case config.OracleStream:
		client, err := oracle.NewStreamClient(ctx, cfg.StreamURL, []string{pricing.SOLUSDFeedID}, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("connect price stream: %w", err)
		}
		return client, func() { client.Close() }, nil
	case config.OracleStatic:
		return oracle.NewFixed(cfg.StaticPrice, cfg.StaticConf, cfg.StaticExpo), func() {}, nil
	default:
		client := oracle.NewHermesClient(cfg.HermesURL,
			oracle.WithTimeout(cfg.Timeout),
			oracle.WithMaxRetries(cfg.MaxRetries),
		)
		return client, func() {}, nil
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
