// Package query filters ledger transactions by date range and aggregates
// them into period totals.
package query

import (
	"fmt"
	"strings"

	"financeiro/internal/core"
)

// Range is an optional, inclusive pair of calendar-day bounds. A zero bound
// means the range is open on that side.
type Range struct {
	From core.Date
	To   core.Date
}

// Summary holds the totals of a filtered period.
type Summary struct {
	Count   int
	Income  float64
	Expense float64
	Balance float64
}

// ParseDateBound parses a DD/MM/YYYY bound. Blank input means no bound and
// yields the zero Date without error.
func ParseDateBound(text string) (core.Date, error) {
	if strings.TrimSpace(text) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(text)
}

// ParseRange parses both bounds of a range.
func ParseRange(fromText, toText string) (Range, error) {
	from, err := ParseDateBound(fromText)
	if err != nil {
		return Range{}, fmt.Errorf("from: %w", err)
	}
	to, err := ParseDateBound(toText)
	if err != nil {
		return Range{}, fmt.Errorf("to: %w", err)
	}
	return Range{From: from, To: to}, nil
}

// Contains reports whether ts falls inside the range. The upper bound covers
// the whole day: anything before midnight of the following day matches.
func (r Range) Contains(ts core.Timestamp) bool {
	if !r.From.IsEmpty() && ts.Before(r.From.Time) {
		return false
	}
	if !r.To.IsEmpty() && !ts.Before(r.To.NextDay().Time) {
		return false
	}
	return true
}

// Filter returns the transactions inside r, preserving their order. The
// result is never nil.
func Filter(txs []core.Transaction, r Range) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if r.Contains(t.Timestamp) {
			out = append(out, t)
		}
	}
	return out
}

// Balance returns income minus expense over txs.
func Balance(txs []core.Transaction) float64 {
	var total float64
	for _, t := range txs {
		total += t.Signed()
	}
	return total
}

func Summarize(txs []core.Transaction) Summary {
	s := Summary{Count: len(txs)}
	for _, t := range txs {
		switch t.Kind {
		case core.Income:
			s.Income += t.Amount
		case core.Expense:
			s.Expense += t.Amount
		}
	}
	s.Balance = Balance(txs)
	return s
}
