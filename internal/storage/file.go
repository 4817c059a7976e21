package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"financeiro/internal/core"
)

// DefaultFilePath is where the JSON document lives unless configured otherwise.
const DefaultFilePath = "data/financeiro.json"

// FileRepository keeps the ledger as a pretty-printed JSON document.
type FileRepository struct {
	path string
}

var _ Repository = (*FileRepository)(nil)

func NewFileRepository(path string) *FileRepository {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileRepository{path: path}
}

func (r *FileRepository) Path() string {
	return r.path
}

// Load implements Repository. A missing or blank file yields a fresh document;
// anything else that does not decode into valid transactions is reported as
// ErrMalformedStore.
func (r *FileRepository) Load(ctx context.Context) (core.Document, error) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.DebugContext(ctx, "Ledger file not found, starting empty", "path", r.path)
			return core.NewDocument(), nil
		}
		return core.Document{}, fmt.Errorf("read ledger file: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return core.NewDocument(), nil
	}

	doc, err := decodeDocument(content)
	if err != nil {
		return core.Document{}, fmt.Errorf("%w: %s: %v", ErrMalformedStore, r.path, err)
	}

	slog.DebugContext(ctx, "Ledger file loaded", "path", r.path, "transactions", doc.Len())
	return doc, nil
}

// Save implements Repository. The document is written to a sibling temp file
// and renamed over the target.
func (r *FileRepository) Save(ctx context.Context, doc core.Document) error {
	payload, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace ledger file: %w", err)
	}

	slog.DebugContext(ctx, "Ledger file saved", "path", r.path, "transactions", doc.Len())
	return nil
}

func (r *FileRepository) Close() error {
	return nil
}

// rawDocument mirrors the file layout with pointer fields so that missing
// and null keys can be told apart from zero values.
type rawDocument struct {
	Transactions *[]*rawTransaction `json:"transacoes"`
}

type rawTransaction struct {
	Kind        *string  `json:"tipo"`
	Amount      *float64 `json:"valor"`
	Description *string  `json:"descricao"`
	Timestamp   *string  `json:"data"`
}

func decodeDocument(content []byte) (core.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()

	var raw *rawDocument
	if err := dec.Decode(&raw); err != nil {
		return core.Document{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return core.Document{}, errors.New("unexpected data after document")
	}
	if raw == nil {
		return core.Document{}, errors.New("document is null")
	}
	if raw.Transactions == nil {
		return core.Document{}, errors.New(`missing "transacoes"`)
	}

	doc := core.Document{Transactions: make([]core.Transaction, 0, len(*raw.Transactions))}
	for i, rt := range *raw.Transactions {
		t, err := rt.transaction()
		if err != nil {
			return core.Document{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		doc.Transactions = append(doc.Transactions, t)
	}
	if err := doc.Validate(); err != nil {
		return core.Document{}, err
	}
	return doc, nil
}

func (rt *rawTransaction) transaction() (core.Transaction, error) {
	switch {
	case rt == nil:
		return core.Transaction{}, errors.New("null transaction")
	case rt.Kind == nil:
		return core.Transaction{}, errors.New(`missing "tipo"`)
	case rt.Amount == nil:
		return core.Transaction{}, errors.New(`missing "valor"`)
	case rt.Description == nil:
		return core.Transaction{}, errors.New(`missing "descricao"`)
	case rt.Timestamp == nil:
		return core.Transaction{}, errors.New(`missing "data"`)
	}
	ts, err := core.ParseTimestamp(*rt.Timestamp)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Kind:        core.Kind(*rt.Kind),
		Amount:      *rt.Amount,
		Description: *rt.Description,
		Timestamp:   ts,
	}, nil
}

// encodeDocument renders doc with 4-space indentation and without HTML
// escaping so accented text and symbols stay readable in the file.
func encodeDocument(doc core.Document) ([]byte, error) {
	if doc.Transactions == nil {
		doc.Transactions = []core.Transaction{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
