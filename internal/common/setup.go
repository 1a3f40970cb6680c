package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"propie-escrow-go/internal/database"
	"propie-escrow-go/internal/escrow"
	"propie-escrow-go/internal/models"
	"propie-escrow-go/internal/notify"
	"propie-escrow-go/internal/payments"
	"propie-escrow-go/internal/store"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Store     store.EscrowStore
	DbService *database.Service // nil with the memory store
	Ledger    *escrow.Ledger
	Registry  *prometheus.Registry // nil when metrics are disabled

	closers []func()
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices builds the store, payment and notification collaborators
// and the escrow ledger on top of them
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	s := &Services{}

	if err := s.initStore(ctx, cfg); err != nil {
		return nil, err
	}

	executor, err := newPaymentExecutor(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	notifier, err := s.initNotifier(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	ledger, err := escrow.NewLedger(escrow.Dependencies{
		Store:    s.Store,
		Payments: executor,
		Notifier: notifier,
		Config: escrow.Config{
			SystemActor:    cfg.Escrow.SystemActor,
			PaymentTimeout: cfg.Payments.Timeout,
		},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("unable to create escrow ledger: %w", err)
	}
	s.Ledger = ledger

	zap.L().Info("Escrow services initialized",
		zap.String("store", cfg.Store.Backend),
		zap.String("payments", cfg.Payments.Backend),
		zap.Bool("nats", cfg.Events.NatsURL != ""),
		zap.Bool("metrics", s.Registry != nil))
	return s, nil
}

func (s *Services) initStore(ctx context.Context, cfg *models.Config) error {
	switch cfg.Store.Backend {
	case "memory":
		zap.L().Warn("Using in-memory escrow store, data is lost on exit")
		s.Store = store.NewMemoryStore()
	default:
		dbService, err := database.NewService(ctx, cfg.Database)
		if err != nil {
			return err
		}
		s.DbService = dbService
		s.Store = dbService
	}
	s.closers = append(s.closers, s.Store.Close)
	return nil
}

func newPaymentExecutor(ctx context.Context, cfg *models.Config) (escrow.PaymentExecutor, error) {
	var backend escrow.PaymentExecutor
	switch cfg.Payments.Backend {
	case "formance":
		zap.L().Info("Connecting to Formance ledger",
			zap.String("stack_url", cfg.Formance.StackURL),
			zap.String("ledger", cfg.Formance.LedgerName))
		f, err := payments.NewFormance(ctx, cfg.Formance)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize Formance payments: %w", err)
		}
		backend = f
	default:
		backend = payments.NewSimulated(0)
	}

	return payments.NewBreaker(backend, payments.BreakerConfig{
		Name:                cfg.Payments.Backend,
		ConsecutiveFailures: cfg.Payments.BreakerFailures,
		OpenTimeout:         cfg.Payments.BreakerOpenTimeout,
	}), nil
}

func (s *Services) initNotifier(cfg *models.Config) (escrow.Notifier, error) {
	notifiers := []escrow.Notifier{notify.NewLog(zap.L())}

	if cfg.Events.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := notify.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("unable to register escrow metrics: %w", err)
		}
		s.Registry = reg
		notifiers = append(notifiers, metrics)
	}

	if cfg.Events.NatsURL != "" {
		publisher, err := notify.NewNats(cfg.Events.NatsURL, cfg.Events.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, publisher.Close)
		notifiers = append(notifiers, publisher)
	}

	return notify.NewMulti(notifiers...), nil
}

// Close releases resources in reverse order of acquisition
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
