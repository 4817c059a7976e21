package google

import (
	"fmt"
	"strings"

	"financeiro/internal/core"
	"financeiro/internal/export"
)

// transactionRows converts transactions into sheet rows using the same
// columns and formatting as the CSV export.
func transactionRows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, toAny(export.Row(t)))
	}
	return rows
}

// hasHeader reports whether the first row already carries the export header.
func hasHeader(values [][]any) bool {
	if len(values) == 0 {
		return false
	}
	got := toStrings(values[0])
	if len(got) < len(export.Header) {
		return false
	}
	for i, want := range export.Header {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want) {
			return false
		}
	}
	return true
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}
