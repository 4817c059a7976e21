package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/export"
	"financeiro/internal/log"
	"financeiro/internal/services"
	"financeiro/internal/storage"
)

type stubSheets struct {
	got []core.Transaction
}

func (s *stubSheets) Name() string { return "sheets:Transacoes" }

func (s *stubSheets) Export(_ context.Context, txs []core.Transaction) error {
	s.got = append(s.got, txs...)
	return nil
}

type harness struct {
	app    *app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	clock  time.Time
	sheets *stubSheets
	path   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		clock:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		sheets: &stubSheets{},
		path:   filepath.Join(t.TempDir(), "financeiro.json"),
	}
	ledger := services.NewLedgerService(storage.NewFileRepository(h.path),
		services.WithClock(func() time.Time { return h.clock }),
		services.WithLogger(log.New(log.Config{Output: io.Discard})))
	t.Cleanup(func() { ledger.Close() })

	h.app = &app{
		ledger: ledger,
		stdout: h.stdout,
		stderr: h.stderr,
		sheets: func(context.Context) (export.Exporter, error) { return h.sheets, nil },
	}
	return h
}

func (h *harness) exec(t *testing.T, at time.Time, args ...string) int {
	t.Helper()
	if !at.IsZero() {
		h.clock = at
	}
	h.stdout.Reset()
	h.stderr.Reset()
	return h.app.exec(context.Background(), args)
}

func seed(t *testing.T, h *harness) {
	t.Helper()
	entries := []struct {
		at   time.Time
		args []string
	}{
		{time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), []string{"receita", "-valor", "100", "-descricao", "Salário"}},
		{time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), []string{"despesa", "-valor", "40", "-descricao", "Mercado"}},
		{time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), []string{"receita", "-valor", "20,00", "-descricao", "Reembolso"}},
	}
	for _, e := range entries {
		if code := h.exec(t, e.at, e.args...); code != 0 {
			t.Fatalf("%v exited %d: %s", e.args, code, h.stderr)
		}
	}
}

func TestAdd(t *testing.T) {
	h := newHarness(t)
	code := h.exec(t, time.Date(2024, 1, 15, 9, 0, 30, 0, time.UTC), "despesa", "-valor", "12,50", "-descricao", "Padaria")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr)
	}
	want := "Transação registrada: 15/01/2024 09:00 despesa R$ 12.50 Padaria\n"
	if h.stdout.String() != want {
		t.Fatalf("stdout = %q, want %q", h.stdout, want)
	}

	raw, err := os.ReadFile(h.path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if !strings.Contains(string(raw), `"data": "15/01/2024 09:00"`) {
		t.Fatalf("unexpected store content: %s", raw)
	}
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"non numeric", []string{"receita", "-valor", "abc", "-descricao", "x"}, 1, "Insira um valor numérico válido."},
		{"negative", []string{"despesa", "-valor", "-5", "-descricao", "x"}, 1, "Insira um valor numérico válido."},
		{"blank description", []string{"receita", "-valor", "10", "-descricao", "   "}, 1, "Insira uma descrição."},
		{"unknown flag", []string{"receita", "-quantia", "10"}, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if code := h.exec(t, time.Time{}, tt.args...); code != tt.code {
				t.Fatalf("exit = %d, want %d (stderr %q)", code, tt.code, h.stderr)
			}
			if !strings.Contains(h.stderr.String(), tt.msg) {
				t.Fatalf("stderr = %q, want %q", h.stderr, tt.msg)
			}
			if n := len(h.app.ledger.Transactions()); n != 0 {
				t.Fatalf("nothing should be recorded, got %d", n)
			}
		})
	}
}

func TestList(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	if code := h.exec(t, time.Time{}, "listar", "-de", "10/01/2024", "-ate", "31/01/2024"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr)
	}
	out := h.stdout.String()
	if !strings.Contains(out, "Mercado") || strings.Contains(out, "Salário") || strings.Contains(out, "Reembolso") {
		t.Fatalf("unexpected rows:\n%s", out)
	}
	totals := "Receitas: R$ 0.00\nDespesas: R$ 40.00\nSaldo do Período: R$ -40.00\n"
	if !strings.HasSuffix(out, totals) {
		t.Fatalf("unexpected totals:\n%s", out)
	}

	if code := h.exec(t, time.Time{}, "listar"); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasSuffix(h.stdout.String(), "Receitas: R$ 120.00\nDespesas: R$ 40.00\nSaldo do Período: R$ 80.00\n") {
		t.Fatalf("unexpected unbounded listing:\n%s", h.stdout)
	}
}

func TestListSingleDigitDates(t *testing.T) {
	h := newHarness(t)
	seed(t, h)
	if code := h.exec(t, time.Time{}, "listar", "-de", "1/2/2024", "-ate", "1/2/2024"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr)
	}
	if out := h.stdout.String(); !strings.Contains(out, "Reembolso") || strings.Contains(out, "Mercado") {
		t.Fatalf("unexpected rows:\n%s", out)
	}
}

func TestListBadDate(t *testing.T) {
	h := newHarness(t)
	seed(t, h)
	if code := h.exec(t, time.Time{}, "listar", "-de", "2024-01-10"); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(h.stderr.String(), "Datas inválidas. Use o formato dd/mm/aaaa.") {
		t.Fatalf("stderr = %q", h.stderr)
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	seed(t, h)
	out := filepath.Join(t.TempDir(), "relatorio.csv")

	code := h.exec(t, time.Time{}, "exportar", "-arquivo", out, "-planilha", "-ate", "31/01/2024")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	want := "Data,Tipo,Valor,Descrição\n" +
		"01/01/2024 10:00,receita,100.00,Salário\n" +
		"15/01/2024 09:00,despesa,40.00,Mercado\n"
	if string(raw) != want {
		t.Fatalf("CSV =\n%s\nwant\n%s", raw, want)
	}
	if len(h.sheets.got) != 2 {
		t.Fatalf("sheets received %d transactions, want 2", len(h.sheets.got))
	}
	if !strings.Contains(h.stdout.String(), "Relatório exportado para: csv:"+out) {
		t.Fatalf("stdout = %q", h.stdout)
	}
}

func TestExportEmptyPeriod(t *testing.T) {
	h := newHarness(t)
	seed(t, h)
	out := filepath.Join(t.TempDir(), "relatorio.csv")

	if code := h.exec(t, time.Time{}, "exportar", "-arquivo", out, "-de", "01/03/2024"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr)
	}
	if h.stdout.String() != "Nenhuma transação encontrada no período.\n" {
		t.Fatalf("stdout = %q", h.stdout)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no file should be written, stat err = %v", err)
	}
}

func TestExportRequiresDestination(t *testing.T) {
	h := newHarness(t)
	seed(t, h)
	if code := h.exec(t, time.Time{}, "exportar"); code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	if code := h.exec(t, time.Time{}, "novo"); code != 2 {
		t.Fatalf("reset without confirmation should be refused, exit %d", code)
	}
	if n := len(h.app.ledger.Transactions()); n != 3 {
		t.Fatalf("data must survive an unconfirmed reset, got %d", n)
	}

	if code := h.exec(t, time.Time{}, "novo", "-confirmar"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr)
	}
	if n := len(h.app.ledger.Transactions()); n != 0 {
		t.Fatalf("expected empty ledger, got %d", n)
	}
	raw, err := os.ReadFile(h.path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if !strings.Contains(string(raw), `"transacoes": []`) {
		t.Fatalf("unexpected store after reset: %s", raw)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	if code := h.exec(t, time.Time{}, "transferir"); code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if !strings.Contains(h.stderr.String(), "Comando desconhecido") {
		t.Fatalf("stderr = %q", h.stderr)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "json")
	t.Setenv("DATA_FILE", filepath.Join(dir, "financeiro.json"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	var stdout, stderr bytes.Buffer
	ctx := context.Background()

	if code := run(ctx, nil, &stdout, &stderr); code != 2 || !strings.Contains(stderr.String(), "Uso:") {
		t.Fatalf("no args: exit %d, stderr %q", code, stderr.String())
	}

	if code := run(ctx, []string{"receita", "-valor", "10", "-descricao", "Pix"}, &stdout, &stderr); code != 0 {
		t.Fatalf("receita: exit %d, stderr %q", code, stderr.String())
	}

	stdout.Reset()
	if code := run(ctx, []string{"listar"}, &stdout, &stderr); code != 0 {
		t.Fatalf("listar: exit %d", code)
	}
	if !strings.Contains(stdout.String(), "Pix") || !strings.HasSuffix(stdout.String(), "Saldo do Período: R$ 10.00\n") {
		t.Fatalf("listar output:\n%s", stdout.String())
	}

	stderr.Reset()
	if code := run(ctx, []string{"exportar", "-planilha"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exportar -planilha without config: exit %d", code)
	}
	if !strings.Contains(stderr.String(), "GOOGLE_SPREADSHEET_ID") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunMalformedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "financeiro.json")
	if err := os.WriteFile(path, []byte(`{"transacoes": [{"tipo": "x"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATA_BACKEND", "json")
	t.Setenv("DATA_FILE", path)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"listar"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), `"tipo": "x"`) {
		t.Fatal("malformed store must be left untouched")
	}
}
