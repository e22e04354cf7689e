// Package backend builds the entry store and event publisher selected by
// configuration and hands back a ready EntryService.
package backend

import (
	"context"

	"receitas/internal/services"
	"receitas/internal/storage"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

type Result struct {
	Store   storage.Store
	Service *services.EntryService
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
