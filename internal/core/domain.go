package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "receita"
	Expense Kind = "despesa"
)

// Layouts used for every stored and user-entered date. They never depend on
// the process locale.
const (
	TimestampLayout = "02/01/2006 15:04"
	DateLayout      = "02/01/2006"
)

type (
	Kind string

	// Date is a calendar day anchored at midnight UTC. The zero value means
	// "no date".
	Date struct {
		time.Time
	}

	// Timestamp is a wall-clock instant with minute precision.
	Timestamp struct {
		time.Time
	}

	Transaction struct {
		Kind        Kind      `json:"tipo"`
		Amount      float64   `json:"valor"`
		Description string    `json:"descricao"`
		Timestamp   Timestamp `json:"data"`
	}

	// Document is the complete persisted state: transactions in creation order.
	Document struct {
		Transactions []Transaction `json:"transacoes"`
	}
)

var (
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// Label returns the human readable name used in listings and exports.
func (k Kind) Label() string {
	return string(k)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// dateInputLayout accepts one or two digit day and month.
const dateInputLayout = "2/1/2006"

// ParseDate parses a D/M/YYYY or DD/MM/YYYY calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateInputLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q (use dd/mm/aaaa)", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (used for optional bounds)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(DateLayout)
}

// NextDay returns midnight of the following calendar day.
func (d Date) NextDay() Date {
	return Date{Time: d.AddDate(0, 0, 1)}
}

// NewTimestamp keeps the wall-clock reading of t, truncated to the minute,
// and re-anchors it in UTC so that stored values compare the same way on any
// machine regardless of its zone.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)}
}

// ParseTimestamp parses a DD/MM/YYYY HH:MM timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	return Timestamp{Time: t}, nil
}

func (ts Timestamp) String() string {
	return ts.Format(TimestampLayout)
}

// CalendarDate returns the calendar day of the timestamp.
func (ts Timestamp) CalendarDate() Date {
	return NewDate(ts.Year(), int(ts.Month()), ts.Day())
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimestamp, string(data))
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// NewTransaction builds a transaction stamped with the given clock reading.
func NewTransaction(kind Kind, amount float64, description string, now time.Time) Transaction {
	return Transaction{
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Timestamp:   NewTimestamp(now),
	}
}

// Signed returns the amount with the sign it contributes to a balance.
func (t Transaction) Signed() float64 {
	if t.Kind == Expense {
		return -t.Amount
	}
	return t.Amount
}

// Validate checks that a transaction read back from storage is well-formed.
func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if t.Amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, t.Amount)
	}
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing", ErrInvalidTimestamp)
	}
	return nil
}

// NewDocument returns an empty, valid document.
func NewDocument() Document {
	return Document{Transactions: []Transaction{}}
}

func (d Document) Len() int {
	return len(d.Transactions)
}

// Clone returns a copy that shares no backing array with d.
func (d Document) Clone() Document {
	out := make([]Transaction, len(d.Transactions))
	copy(out, d.Transactions)
	return Document{Transactions: out}
}

func (d Document) Validate() error {
	for i, t := range d.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}
