package worker

import (
	"context"
	"fmt"

	"receitas/internal/amqp"
	"receitas/internal/log"
	"receitas/internal/sheets"
)

// SyncWorker mirrors entry events into a spreadsheet.
type SyncWorker struct {
	mirror sheets.Mirror
}

func NewSyncWorker(mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{mirror: mirror}
}

// HandleEntryEvent applies one event to the mirror. A returned error makes
// the consumer requeue the delivery.
func (w *SyncWorker) HandleEntryEvent(ctx context.Context, msg *amqp.EntryEvent) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentWorker).
		With(log.FieldEvent, string(msg.Type), log.FieldEntryID, msg.ID)
	logger.InfoContext(ctx, "Processing entry event", "timestamp", msg.Timestamp)

	switch msg.Type {
	case amqp.EventEntryCreated, amqp.EventEntryUpdated:
		entry, err := msg.Entry()
		if err != nil {
			// a malformed payload will never succeed; drop it
			logger.ErrorContext(ctx, "Discarding entry event with invalid payload", log.FieldError, err.Error())
			return nil
		}
		ref, err := w.mirror.UpsertEntry(ctx, entry)
		if err != nil {
			return fmt.Errorf("mirror entry %d: %w", msg.ID, err)
		}
		logger.InfoContext(ctx, "Entry mirrored to sheet", log.FieldOperation, log.OpSync, "ref", ref)

	case amqp.EventEntryDeleted:
		if err := w.mirror.DeleteEntry(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove entry %d from sheet: %w", msg.ID, err)
		}
		logger.InfoContext(ctx, "Entry removed from sheet", log.FieldOperation, log.OpSync)

	default:
		logger.WarnContext(ctx, "Ignoring unknown entry event")
	}

	return nil
}
