// Package app assembles the pipeline: config in, wired HTTP server out.
package app

import (
	"context"
	"fmt"
	"net/http"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ballparklabs/diamondline/external/statsapi"
	"github.com/ballparklabs/diamondline/internal/config"
	"github.com/ballparklabs/diamondline/internal/domain/warehouse"
	"github.com/ballparklabs/diamondline/internal/infrastructure/notify"
	warehousememory "github.com/ballparklabs/diamondline/internal/infrastructure/warehouse/memory"
	warehousepostgres "github.com/ballparklabs/diamondline/internal/infrastructure/warehouse/postgres"
	"github.com/ballparklabs/diamondline/internal/interfaces/httpapi"
	"github.com/ballparklabs/diamondline/internal/platform/logging"
	"github.com/ballparklabs/diamondline/internal/platform/resilience"
	"github.com/ballparklabs/diamondline/internal/usecase"
)

// NewHTTPServer wires the warehouse store, the stats client, and the pipeline
// services behind the trigger API. The returned close func releases the DB
// pool and the outbound HTTP clients.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	store, db, err := buildWarehouseStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	statsClient := statsapi.NewClient(statsapi.ClientConfig{
		BaseURL:    cfg.StatsAPIBaseURL,
		Timeout:    cfg.StatsAPITimeout,
		MaxRetries: cfg.StatsAPIMaxRetries,
		BaseDelay:  cfg.StatsAPIRetryBaseDelay,
		MaxDelay:   cfg.StatsAPIRetryMaxDelay,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.StatsAPICircuitEnabled,
			FailureThreshold: cfg.StatsAPICircuitFailureCount,
			OpenTimeout:      cfg.StatsAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.StatsAPICircuitHalfOpenMaxReq,
		},
	})

	extractor := usecase.NewExtractionService(statsClient, logger, cfg.ExtractionWorkers)
	loader := usecase.NewLoaderService(store, logger)
	validator := usecase.NewValidationService(store, logger)

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	pipeline := usecase.NewPipelineService(extractor, loader, validator, notifier, logger)

	handler := httpapi.NewHandler(pipeline, cfg, logger)
	router := httpapi.NewRouter(handler, logger, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	closeDeps := func(context.Context) error {
		statsClient.Close()
		if db != nil {
			return db.Close()
		}
		return nil
	}

	return server, closeDeps, nil
}

// buildWarehouseStore opens the traced postgres pool, or falls back to the
// in-memory store when DB_URL is empty. The fallback keeps local runs and
// smoke tests off a real database; nothing survives a restart.
func buildWarehouseStore(cfg config.Config, logger *logging.Logger) (warehouse.Store, *sqlx.DB, error) {
	if cfg.DBURL == "" {
		logger.Warn("DB_URL is empty, using in-memory warehouse store")
		return warehousememory.NewStore(), nil, nil
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(dbURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, nil, crerr.Wrap(err, "connect warehouse db")
	}

	return warehousepostgres.NewStore(db), db, nil
}

func buildNotifier(cfg config.Config, logger *logging.Logger) (usecase.Notifier, error) {
	if !cfg.AlertWebhookEnabled {
		return notify.NewLogNotifier(logger), nil
	}

	webhook, err := notify.NewWebhookNotifier(notify.WebhookConfig{
		Endpoint: cfg.AlertWebhookURL,
		Token:    cfg.AlertWebhookToken,
		Timeout:  cfg.AlertWebhookTimeout,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled: true,
		},
	}, logger)
	if err != nil {
		return nil, crerr.Wrap(err, "build alert webhook notifier")
	}
	return webhook, nil
}
