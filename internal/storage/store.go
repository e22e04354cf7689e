// Package storage persists income entries.
//
// Store is the port the entry service depends on; SQLiteRepository is the
// default durable implementation, with memory and postgres alternatives in
// sub-packages.
package storage

import (
	"context"

	"receitas/internal/core"
)

type Store interface {
	// Get returns the entry with the given id or an error of kind core.KindNotFound.
	Get(ctx context.Context, id int64) (core.Entry, error)
	// List returns every entry.
	List(ctx context.Context) ([]core.Entry, error)
	// ListByDescription returns entries whose description equals description, ignoring case.
	ListByDescription(ctx context.Context, description string) ([]core.Entry, error)
	// Upsert inserts e when it has no id, otherwise replaces the entry with that id.
	Upsert(ctx context.Context, e core.Entry) (core.Entry, error)
	// Delete removes e by id.
	Delete(ctx context.Context, e core.Entry) error
}
