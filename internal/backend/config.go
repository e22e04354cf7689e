package backend

import (
	"fmt"

	"receitas/internal/config"
	"receitas/internal/core"
)

type Config struct {
	Type BackendType

	SQLiteDBPath string

	PostgresDSN   string
	DBAutoMigrate bool

	// AMQP is optional; an empty URL disables entry events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Mode core.MonthMode
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	mode, err := core.ParseMonthMode(appConfig.DuplicateRule)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Type:          backendType,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		PostgresDSN:   appConfig.PostgresDSN,
		DBAutoMigrate: appConfig.DBAutoMigrate,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
		Mode:          mode,
	}, nil
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is required for postgres backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}
