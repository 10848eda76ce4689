package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/shipdoc/internal/config"
	"github.com/tournevent/shipdoc/internal/notify"
	"github.com/tournevent/shipdoc/internal/shipment"
	"github.com/tournevent/shipdoc/internal/storage/postgres"
	"github.com/tournevent/shipdoc/internal/storage/postgres/counterpartyrepo"
	"github.com/tournevent/shipdoc/internal/storage/postgres/documentrepo"
	"github.com/tournevent/shipdoc/internal/storage/postgres/orderrepo"
	"github.com/tournevent/shipdoc/internal/telemetry"
	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// app holds the wired service components shared by serve and provision.
type app struct {
	cfg         *config.Config
	logger      *otelzap.Logger
	metrics     *telemetry.Metrics
	db          *postgres.DB
	notifier    *notify.RedisNotifier
	provisioner *shipment.Provisioner
	documents   *shipment.DocumentService

	shutdownTracer func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	a.shutdownTracer, err = initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	}

	a.metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)

	a.db, err = initDatabase(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	carrier := initCarrier(cfg, a.metrics, logger)
	logger.Info("Carrier client configured",
		zap.String("carrier", carrier.Name()),
		zap.Bool("mock", cfg.NovaPoshtaUseMock),
	)

	var notifier shipment.Notifier
	if cfg.RedisAddr != "" {
		a.notifier = notify.NewRedisNotifier(cfg.RedisAddr, cfg.NotifyChannel, logger)
		if err := a.notifier.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, shipment events will fail until it recovers",
				zap.String("addr", cfg.RedisAddr),
				zap.Error(err),
			)
		}
		notifier = a.notifier
	}

	documents := documentrepo.NewGormDocumentRepository(a.db.Gorm)
	a.provisioner = shipment.NewProvisioner(
		shipment.ProvisionerConfig{
			SenderRef:        senderRef(cfg),
			BatchConcurrency: cfg.BatchConcurrency,
		},
		shipment.Dependencies{
			Orders:         orderrepo.NewGormOrderRepository(a.db.Gorm),
			Carrier:        carrier,
			Documents:      documents,
			Counterparties: counterpartyrepo.NewGormCounterpartyRepository(a.db.Gorm),
			Notifier:       notifier,
			Metrics:        a.metrics,
			Tracer:         otel.Tracer(cfg.ServiceName),
		},
		logger,
	)
	a.documents = shipment.NewDocumentService(documents, carrier, logger)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.shutdownTracer != nil {
		a.shutdownTracer(ctx)
	}
	a.logger.Sync()
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.Attributes()...)
	return shutdown, err
}

func initDatabase(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.Open(ctx, postgres.Config{
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DatabaseMaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return db, nil
}

func initCarrier(cfg *config.Config, metrics *telemetry.Metrics, logger *otelzap.Logger) *novaposhta.Client {
	return novaposhta.New(novaposhta.Config{
		APIKey:        cfg.NovaPoshtaAPIKey,
		BaseURL:       cfg.NovaPoshtaBaseURL,
		Timeout:       cfg.NovaPoshtaTimeout,
		UseMock:       cfg.NovaPoshtaUseMock,
		MockSenderRef: senderRef(cfg),
		Observer:      metrics.ObserveCarrierCall,
	}, logger)
}

// senderRef falls back to a fixed ref so the mock carrier can run unconfigured.
func senderRef(cfg *config.Config) string {
	if cfg.NovaPoshtaSenderRef == "" && cfg.NovaPoshtaUseMock {
		return "mock-sender"
	}
	return cfg.NovaPoshtaSenderRef
}
