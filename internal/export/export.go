// Package export writes a filtered view of the ledger to external
// destinations: a CSV file and, optionally, other Exporter implementations
// such as the Google Sheets mirror.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"financeiro/internal/core"
)

// ErrNothingToExport is returned when the view to export is empty. No
// destination is written in that case.
var ErrNothingToExport = errors.New("nothing to export")

// Header is the first row of every export.
var Header = []string{"Data", "Tipo", "Valor", "Descrição"}

// Exporter delivers a list of transactions to one destination.
type Exporter interface {
	Export(ctx context.Context, txs []core.Transaction) error
	Name() string
}

// Row renders one transaction in export column order.
func Row(t core.Transaction) []string {
	return []string{t.Timestamp.String(), t.Kind.Label(), core.FormatAmount(t.Amount), t.Description}
}

// WriteCSV writes the header and one row per transaction.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, t := range txs {
		if err := cw.Write(Row(t)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVFile exports to a comma-separated file at Path, replacing it.
type CSVFile struct {
	Path string
}

var _ Exporter = CSVFile{}

func (f CSVFile) Name() string {
	return "csv:" + f.Path
}

func (f CSVFile) Export(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return ErrNothingToExport
	}

	file, err := os.Create(f.Path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(file, txs); err != nil {
		file.Close()
		return fmt.Errorf("write export file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	slog.InfoContext(ctx, "Exported transactions", "destination", f.Name(), "count", len(txs))
	return nil
}

// All delivers txs to every exporter concurrently and returns the first
// failure. Empty input is rejected before any destination is touched.
func All(ctx context.Context, txs []core.Transaction, exporters ...Exporter) error {
	if len(txs) == 0 {
		return ErrNothingToExport
	}
	if len(exporters) == 0 {
		return errors.New("no export destination")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, e := range exporters {
		g.Go(func() error {
			if err := e.Export(ctx, txs); err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
