package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financeiro/internal/core"
	"financeiro/internal/export"
)

// Default tab names used when none are configured.
const (
	DefaultSheetName       = "Transacoes"
	DefaultExportSheetName = "Relatorio"
)

// Client writes to two tabs of one spreadsheet: the mirror tab, kept in step
// with the ledger by the sync worker, and the export tab, replaced by every
// Export. Row 1 of both holds the export header.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	exportSheet   string
}

var _ export.Exporter = (*Client)(nil)

// Options configures NewFromConfig. Credentials come from inline
// service-account JSON or, when that is empty, from CredentialsFile.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	ExportSheetName string
	CredentialsJSON string
	CredentialsFile string
}

func NewFromConfig(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	credentials, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.DebugContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)
	return NewWithService(svc, opts), nil
}

// NewWithService wraps an already configured Sheets service. Credential
// fields of opts are ignored.
func NewWithService(svc *gsheet.Service, opts Options) *Client {
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	exportSheet := strings.TrimSpace(opts.ExportSheetName)
	if exportSheet == "" {
		exportSheet = DefaultExportSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     sheetName,
		exportSheet:   exportSheet,
	}
}

func loadCredentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

func (c *Client) Name() string {
	return "sheets:" + c.exportSheet
}

// Export implements export.Exporter. The export tab is cleared and rewritten
// with the header and txs, so repeated exports replace each other like the
// CSV file does.
func (c *Client) Export(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return export.ErrNothingToExport
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.clear(ctx, c.exportSheet, "A:D"); err != nil {
		return err
	}

	values := append([][]any{toAny(export.Header)}, transactionRows(txs)...)
	rng := a1(c.exportSheet, "A1")
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %d rows to %s: %w", len(txs), c.exportSheet, err)
	}

	slog.InfoContext(ctx, "Exported transactions", "destination", c.Name(), "count", len(txs))
	return nil
}

// AppendTransaction mirrors a single newly created transaction.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) error {
	if err := c.ensureHeader(ctx, c.sheetName); err != nil {
		return err
	}
	return c.appendRows(ctx, c.sheetName, transactionRows([]core.Transaction{t}))
}

// Clear removes every mirrored transaction, keeping the header.
func (c *Client) Clear(ctx context.Context) error {
	if err := c.clear(ctx, c.sheetName, "A2:D"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Cleared mirrored transactions", "sheet", c.sheetName)
	return nil
}

func (c *Client) clear(ctx context.Context, sheet, cells string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := a1(sheet, cells)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ensureHeader(ctx context.Context, sheet string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := a1(sheet, "A1:D1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}
	if hasHeader(resp.Values) {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{toAny(export.Header)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	return nil
}

func (c *Client) appendRows(ctx context.Context, sheet string, rows [][]any) error {
	rng := a1(sheet, "A:D")
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %d rows to %s: %w", len(rows), sheet, err)
	}
	return nil
}

// a1 builds an A1 range on sheet, quoting the tab name.
func a1(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}
