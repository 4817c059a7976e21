package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/log"
	"financeiro/internal/query"
	"financeiro/internal/storage"
)

// EventPublisher announces ledger mutations to other processes.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, t core.Transaction) error
	PublishLedgerReset(ctx context.Context) error
	Close() error
}

// LedgerService owns the in-memory ledger document and keeps it in step with
// the repository. Every mutation persists the whole document before it
// returns.
type LedgerService struct {
	repo      storage.Repository
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time

	doc    core.Document
	loaded bool
}

// Option customizes a LedgerService.
type Option func(*LedgerService)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithClock replaces time.Now as the source of transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

func NewLedgerService(repo storage.Repository, opts ...Option) *LedgerService {
	s := &LedgerService{
		repo:   repo,
		now:    time.Now,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
		doc:    core.NewDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted document and makes it the current state.
func (s *LedgerService) Load(ctx context.Context) error {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	s.doc = doc
	s.loaded = true
	s.logger.DebugContext(ctx, "Ledger loaded", log.FieldOperation, log.OpLoad, log.FieldCount, doc.Len())
	return nil
}

// Document returns a copy of the current document.
func (s *LedgerService) Document() core.Document {
	return s.doc.Clone()
}

// Transactions returns a copy of the current transactions in creation order.
func (s *LedgerService) Transactions() []core.Transaction {
	return s.doc.Clone().Transactions
}

// AddTransaction stamps a new transaction with the current time, appends it
// and persists the document. Amount and description are expected to have
// been validated by the caller. If persisting fails the append is undone.
func (s *LedgerService) AddTransaction(ctx context.Context, kind core.Kind, amount float64, description string) (core.Transaction, error) {
	if err := kind.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return core.Transaction{}, err
	}

	t := core.NewTransaction(kind, amount, description, s.now())
	previous := s.doc.Transactions
	s.doc.Transactions = append(s.doc.Clone().Transactions, t)

	if err := s.repo.Save(ctx, s.doc); err != nil {
		s.doc.Transactions = previous
		return core.Transaction{}, fmt.Errorf("save ledger: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction added",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithTransaction(string(t.Kind), t.Amount, t.Description, t.Timestamp.String()).
			ToSlice()...)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionCreated(ctx, t); err != nil {
			// Persisted locally; the event is best effort.
			s.logger.ErrorContext(ctx, "Failed to publish transaction event", log.FieldError, err)
		}
	}

	return t, nil
}

// Reset removes every transaction and persists the empty document. If
// persisting fails the previous transactions are kept.
func (s *LedgerService) Reset(ctx context.Context) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	previous := s.doc
	s.doc = core.NewDocument()
	if err := s.repo.Save(ctx, s.doc); err != nil {
		s.doc = previous
		return fmt.Errorf("save ledger: %w", err)
	}

	s.logger.InfoContext(ctx, "Ledger reset", log.FieldOperation, log.OpReset, log.FieldCount, previous.Len())

	if s.publisher != nil {
		if err := s.publisher.PublishLedgerReset(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish reset event", log.FieldError, err)
		}
	}
	return nil
}

// Filter parses the DD/MM/YYYY bounds and returns the matching transactions,
// loading the ledger first if needed. A malformed bound yields an empty result
// together with the date error so the caller can tell the user.
func (s *LedgerService) Filter(ctx context.Context, fromText, toText string) ([]core.Transaction, error) {
	r, err := query.ParseRange(fromText, toText)
	if err != nil {
		return []core.Transaction{}, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return []core.Transaction{}, err
	}
	txs := query.Filter(s.doc.Transactions, r)
	s.logger.DebugContext(ctx, "Ledger filtered",
		log.FieldOperation, log.OpFilter,
		log.FieldFrom, r.From.String(),
		log.FieldTo, r.To.String(),
		log.FieldCount, len(txs))
	return txs, nil
}

// Summarize returns the income and expense totals and the period balance of
// txs.
func (s *LedgerService) Summarize(txs []core.Transaction) query.Summary {
	return query.Summarize(txs)
}

// Close releases the repository and the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}

func (s *LedgerService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.Load(ctx)
}
