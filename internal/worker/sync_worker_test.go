package worker

import (
	"context"
	"errors"
	"testing"

	"financeiro/internal/amqp"
	"financeiro/internal/core"
	"financeiro/internal/sheets/memory"
)

type failingMirror struct{ err error }

func (f failingMirror) AppendTransaction(context.Context, core.Transaction) error { return f.err }
func (f failingMirror) Clear(context.Context) error { return f.err }

func sample(t *testing.T, desc string) core.Transaction {
	t.Helper()
	ts, err := core.ParseTimestamp("15/01/2024 09:00")
	if err != nil {
		t.Fatal(err)
	}
	return core.Transaction{Kind: core.Expense, Amount: 40, Description: desc, Timestamp: ts}
}

func TestSyncWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewSyncWorker(mirror)

	created := amqp.NewTransactionCreatedEvent(sample(t, "Mercado"))
	if err := w.HandleEvent(ctx, created); err != nil {
		t.Fatalf("HandleEvent(created): %v", err)
	}
	if got := mirror.Transactions(); len(got) != 1 || got[0].Description != "Mercado" {
		t.Fatalf("unexpected mirror after create: %+v", got)
	}

	if err := w.HandleEvent(ctx, amqp.NewLedgerResetEvent()); err != nil {
		t.Fatalf("HandleEvent(reset): %v", err)
	}
	if mirror.Len() != 0 {
		t.Fatalf("mirror should be empty after reset, got %d", mirror.Len())
	}
}

func TestSyncWorker_HandleEventErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")

	tests := []struct {
		name   string
		worker *SyncWorker
		event  *amqp.LedgerEvent
		want   error
	}{
		{"nil event", NewSyncWorker(memory.New()), nil, nil},
		{"unknown type", NewSyncWorker(memory.New()), &amqp.LedgerEvent{Type: "transaction.deleted"}, nil},
		{"created without transaction", NewSyncWorker(memory.New()), &amqp.LedgerEvent{Type: amqp.EventTransactionCreated}, nil},
		{"append failure", NewSyncWorker(failingMirror{boom}), amqp.NewTransactionCreatedEvent(sample(t, "x")), boom},
		{"clear failure", NewSyncWorker(failingMirror{boom}), amqp.NewLedgerResetEvent(), boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.worker.HandleEvent(ctx, tt.event)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSyncWorker_Resync(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New(sample(t, "stale"))
	w := NewSyncWorker(mirror)

	ledger := []core.Transaction{sample(t, "Aluguel"), sample(t, "Padaria")}
	if err := w.Resync(ctx, ledger); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	got := mirror.Transactions()
	if len(got) != 2 || got[0].Description != "Aluguel" || got[1].Description != "Padaria" {
		t.Fatalf("unexpected mirror: %+v", got)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := w.Resync(cancelled, ledger); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
