/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the inventory ledger engine server. Handles
  configuration, dependency injection, state rehydration, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment (LEDGER_* variables)
  2. Open the SQLite store (or run memory-only)
  3. Rehydrate registries and records from the store
  4. Connect the AMQP publisher when configured
  5. Start the HTTP server with graceful shutdown

ENVIRONMENT:
  LEDGER_SERVER_PORT          HTTP port (default 8080)
  LEDGER_SERVER_ENVIRONMENT   development | production
  LEDGER_STORE_PATH           SQLite path; ":memory:" for in-memory DB;
                              empty string disables durability entirely
  LEDGER_AMQP_URL             enables event publishing when set

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the publisher and the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Durable storage
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artisan/ledger-engine/api"
	"github.com/artisan/ledger-engine/config"
	"github.com/artisan/ledger-engine/events"
	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	memstore "github.com/artisan/ledger-engine/ledger/store"
	"github.com/artisan/ledger-engine/logger"
	"github.com/artisan/ledger-engine/production"
	"github.com/artisan/ledger-engine/recipe"
	"github.com/artisan/ledger-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("ledger-engine", cfg.Server.Environment)

	svc, closers, err := buildService(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build service")
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	handler := api.NewHandler(svc, log)
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

// buildService wires storage, registries, and the publisher, rehydrating
// everything from the durable store when one is configured.
func buildService(cfg *config.Config, log *logger.Logger) (*production.Service, []func(), error) {
	var closers []func()

	registry := inventory.NewRegistry()
	suppliers := inventory.NewSupplierRegistry()
	recipes := recipe.NewBook()

	opts := []production.Option{}
	var ledgerStore ledger.Store

	if cfg.Store.Path == "" {
		log.Warn().Msg("no store path configured, running memory-only")
		ledgerStore = memstore.NewMemory()
	} else {
		db, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })
		ledgerStore = db
		opts = append(opts, production.WithPersister(db))

		if err := rehydrate(db, registry, suppliers, recipes); err != nil {
			return nil, nil, fmt.Errorf("failed to rehydrate state: %w", err)
		}
	}

	if cfg.AMQP.URL != "" {
		pub, err := events.NewAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect publisher: %w", err)
		}
		closers = append(closers, func() { pub.Close() })
		opts = append(opts, production.WithPublisher(pub))
	}

	books := inventory.NewBooks(ledger.New(ledgerStore), registry)
	svc := production.NewService(books, suppliers, recipes, log, opts...)

	if db, ok := ledgerStore.(*sqlite.Store); ok {
		if err := restoreRecords(db, svc); err != nil {
			return nil, nil, fmt.Errorf("failed to restore records: %w", err)
		}
	}
	return svc, closers, nil
}

func rehydrate(db *sqlite.Store, registry *inventory.Registry, suppliers *inventory.SupplierRegistry, recipes *recipe.Book) error {
	ctx := context.Background()

	items, err := db.LoadItems(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := registry.Restore(item); err != nil {
			return err
		}
	}

	sups, err := db.LoadSuppliers(ctx)
	if err != nil {
		return err
	}
	for _, s := range sups {
		suppliers.Restore(s)
	}

	recs, err := db.LoadRecipes(ctx)
	if err != nil {
		return err
	}
	for _, r := range recs {
		recipes.Restore(r)
	}
	return nil
}

func restoreRecords(db *sqlite.Store, svc *production.Service) error {
	ctx := context.Background()

	purchases, err := db.LoadPurchases(ctx)
	if err != nil {
		return err
	}
	batches, err := db.LoadBatches(ctx)
	if err != nil {
		return err
	}
	spotChecks, err := db.LoadSpotChecks(ctx)
	if err != nil {
		return err
	}
	sales, err := db.LoadSales(ctx)
	if err != nil {
		return err
	}
	salesMonths, err := db.LoadSalesMonths(ctx)
	if err != nil {
		return err
	}

	svc.RestoreRecords(purchases, batches, spotChecks, sales, salesMonths)
	return nil
}
