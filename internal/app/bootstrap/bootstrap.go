package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	accesscontrol "gatekeeper/contexts/identity-access/access-control"
	eventsadapter "gatekeeper/contexts/identity-access/access-control/adapters/events"
	"gatekeeper/contexts/identity-access/access-control/adapters/memory"
	postgresadapter "gatekeeper/contexts/identity-access/access-control/adapters/postgres"
	workerapp "gatekeeper/contexts/identity-access/access-control/application/workers"
	"gatekeeper/contexts/identity-access/access-control/ports"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/db"
	"gatekeeper/internal/platform/httpserver"
	"gatekeeper/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres       *db.Postgres
	bus            *messaging.Kafka
	outboxRelay    workerapp.OutboxRelay
	policyConsumer workerapp.PolicyChangedConsumer
	enableConsumer bool
	pollInterval   time.Duration
	logger         *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := repo.Migrate(context.Background()); err != nil {
		_ = pg.Close()
		return nil, err
	}
	if !cfg.EnforceByDefault {
		// Explicit opt-out at boot; enforcement stays on otherwise.
		if err := repo.SetEnforced(context.Background(), false); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}

	module := accesscontrol.NewModule(accesscontrol.Dependencies{
		Repository:       repo,
		Enforcement:      repo,
		DecisionCache:    memory.NewStore(),
		Clock:            postgresadapter.SystemClock{},
		IDGenerator:      postgresadapter.UUIDGenerator{},
		DecisionCacheTTL: cfg.DecisionCacheTTL,
		Logger:           logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		bus:      kafka,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: eventsadapter.NewPublisher(kafka, logger),
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		policyConsumer: workerapp.PolicyChangedConsumer{
			Dedup:         repo,
			DecisionCache: memory.NewStore(),
			Clock:         postgresadapter.SystemClock{},
			DedupTTL:      7 * 24 * time.Hour,
		},
		enableConsumer: cfg.EnablePolicyConsumer,
		pollInterval:   2 * time.Second,
		logger:         logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.enableConsumer {
		err := w.bus.Subscribe(ctx, eventsadapter.TopicPolicyChanged, "gatekeeper-policy-cg",
			func(ctx context.Context, payload []byte) error {
				var event ports.PolicyChangedEvent
				if err := json.Unmarshal(payload, &event); err != nil {
					return err
				}
				return w.policyConsumer.Handle(ctx, event)
			})
		if err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
