package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receitas/internal/amqp"
	"receitas/internal/config"
	"receitas/internal/core"
	"receitas/internal/log"
	"receitas/internal/storage"
	"receitas/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DuplicateRule: "calendar"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, core.CalendarMonth, cfg.Mode)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: PostgresBackend}.Validate())
	assert.Error(t, Config{Type: "redis"}.Validate())
}

func TestCreateBackend_Memory(t *testing.T) {
	result, err := NewFactory(log.New(log.DefaultConfig())).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	t.Cleanup(func() { _ = result.Cleanup() })

	assert.IsType(t, &memory.Store{}, result.Store)
	assert.Equal(t, core.MonthOfYear, result.Service.Mode())
}

func TestCreateBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "receitas.db"), Mode: core.CalendarMonth}

	result, err := NewFactory(nil).CreateBackend(ctx, cfg)
	require.NoError(t, err)

	assert.IsType(t, &storage.SQLiteRepository{}, result.Store)
	saved, err := result.Service.Save(ctx, core.NewEntry("Salary", decimal.NewFromInt(1000), core.NewDate(2024, 1, 15)))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.NoError(t, result.Cleanup())
}

func TestCreateBackend_AMQPFailureIsNotFatal(t *testing.T) {
	f := NewFactory(nil)
	f.dialAMQP = func(string, string, string) (*amqp.Client, error) {
		return nil, errors.New("connection refused")
	}

	result, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/"})
	require.NoError(t, err)

	_, err = result.Service.Save(context.Background(), core.NewEntry("Salary", decimal.NewFromInt(1), core.NewDate(2024, 1, 1)))
	assert.NoError(t, err, "a nil publisher must not be wrapped in a non-nil interface")
}
