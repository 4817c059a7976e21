package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"financeiro/internal/core"

	_ "modernc.org/sqlite"
)

// DefaultSQLitePath is the database location used by the sqlite backend.
const DefaultSQLitePath = "data/financeiro.db"

// SQLiteRepository keeps the ledger document as rows of the transacoes
// table, one per transaction, ordered by insertion id.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath == "" {
		dbPath = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements Repository
func (r *SQLiteRepository) Load(ctx context.Context) (core.Document, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tipo, valor, descricao, data FROM transacoes ORDER BY id`)
	if err != nil {
		return core.Document{}, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	doc := core.NewDocument()
	for rows.Next() {
		var (
			kind, description, stamp string
			amount                   float64
		)
		if err := rows.Scan(&kind, &amount, &description, &stamp); err != nil {
			return core.Document{}, fmt.Errorf("scan transaction: %w", err)
		}
		ts, err := core.ParseTimestamp(stamp)
		if err != nil {
			return core.Document{}, fmt.Errorf("%w: row %d: %v", ErrMalformedStore, doc.Len(), err)
		}
		doc.Transactions = append(doc.Transactions, core.Transaction{
			Kind:        core.Kind(kind),
			Amount:      amount,
			Description: description,
			Timestamp:   ts,
		})
	}
	if err := rows.Err(); err != nil {
		return core.Document{}, fmt.Errorf("iterate transactions: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return core.Document{}, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}

	slog.DebugContext(ctx, "Ledger loaded from SQLite", "transactions", doc.Len())
	return doc, nil
}

// Save implements Repository. The table is rewritten inside one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, doc core.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transacoes`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transacoes (tipo, valor, descricao, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range doc.Transactions {
		if _, err := stmt.ExecContext(ctx, string(t.Kind), t.Amount, t.Description, t.Timestamp.String()); err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite", "transactions", doc.Len())
	return nil
}
