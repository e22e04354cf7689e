package backend

import (
	"context"
	"errors"
	"fmt"

	"receitas/internal/amqp"
	"receitas/internal/log"
	"receitas/internal/services"
	"receitas/internal/storage"
	"receitas/internal/storage/memory"
	"receitas/internal/storage/postgres"
)

type DefaultFactory struct {
	logger *log.Logger

	// dialAMQP is swapped in tests
	dialAMQP func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory logs under the backend component; a nil logger falls back to
// the process default.
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger:   logger.WithComponent(log.ComponentBackend),
		dialAMQP: amqp.NewClient,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend opens the configured store, connects the optional AMQP
// publisher and builds the entry service on top of them.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, closeStore, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	var (
		publisher services.EventPublisher
		closers   = []CleanupFunc{closeStore}
	)
	if config.AMQPURL != "" {
		client, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without entry events", log.FieldError, err.Error())
		} else {
			publisher = client
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type,
		log.FieldRule, config.Mode.String(),
		"amqp_enabled", publisher != nil)

	return &Result{
		Store:   store,
		Service: services.NewEntryService(store, publisher, config.Mode),
		Cleanup: func() error {
			var errs []error
			for i := len(closers) - 1; i >= 0; i-- {
				if err := closers[i](); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (storage.Store, CleanupFunc, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, repo.Close, nil

	case PostgresBackend:
		store, err := postgres.Open(postgres.Config{DSN: config.PostgresDSN, AutoMigrate: config.DBAutoMigrate})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		f.logger.Info("Initialized postgres store", "auto_migrate", config.DBAutoMigrate)
		return store, store.Close, nil

	default:
		f.logger.Info("Initialized memory store")
		return memory.New(), func() error { return nil }, nil
	}
}
