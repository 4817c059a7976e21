package worker

import (
	"context"
	"fmt"
	"log/slog"

	"financeiro/internal/amqp"
	"financeiro/internal/core"
	"financeiro/internal/sheets"
)

// SyncWorker applies ledger change events to a remote mirror.
type SyncWorker struct {
	mirror sheets.Mirror
}

func NewSyncWorker(mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{mirror: mirror}
}

// HandleEvent processes a single ledger event from AMQP. A returned error
// makes the consumer requeue the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	if event == nil {
		return fmt.Errorf("nil event")
	}

	slog.InfoContext(ctx, "Processing ledger event",
		"event_type", event.Type,
		"timestamp", event.Timestamp)

	switch event.Type {
	case amqp.EventTransactionCreated:
		if event.Transaction == nil {
			return fmt.Errorf("%s event without transaction", event.Type)
		}
		if err := w.mirror.AppendTransaction(ctx, *event.Transaction); err != nil {
			return fmt.Errorf("append transaction to mirror: %w", err)
		}
		slog.InfoContext(ctx, "Successfully mirrored transaction",
			"kind", event.Transaction.Kind,
			"amount", event.Transaction.Amount,
			"data", event.Transaction.Timestamp.String())
		return nil

	case amqp.EventLedgerReset:
		if err := w.mirror.Clear(ctx); err != nil {
			return fmt.Errorf("clear mirror: %w", err)
		}
		slog.InfoContext(ctx, "Successfully cleared mirror")
		return nil

	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}

// Resync rebuilds the mirror from the full ledger. It runs on startup so
// changes made while the worker was down are not lost.
func (w *SyncWorker) Resync(ctx context.Context, txs []core.Transaction) error {
	if err := w.mirror.Clear(ctx); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	for i, t := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror.AppendTransaction(ctx, t); err != nil {
			return fmt.Errorf("append transaction %d: %w", i, err)
		}
	}
	slog.InfoContext(ctx, "Startup resync completed", "count", len(txs))
	return nil
}
