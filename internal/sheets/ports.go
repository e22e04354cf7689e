// Package sheets defines the spreadsheet mirror the worker keeps in sync
// with the entry store. Rows are keyed by entry id.
package sheets

import (
	"context"

	"receitas/internal/core"
)

// Ports for outbound adapters.
type (
	EntryWriter interface {
		// UpsertEntry writes e to the row holding its id, appending a row
		// when none exists yet.
		UpsertEntry(ctx context.Context, e core.Entry) (rowRef string, err error)
	}

	EntryDeleter interface {
		// DeleteEntry clears the row holding id. A missing row is not an error.
		DeleteEntry(ctx context.Context, id int64) error
	}

	Mirror interface {
		EntryWriter
		EntryDeleter
	}
)
