package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"financeiro/internal/cli"
	"financeiro/internal/core"
	"financeiro/internal/export"
	"financeiro/internal/log"
	"financeiro/internal/services"
)

const usage = `Uso: financeiro <comando> [opções]

Comandos:
  receita   -valor V -descricao D        registra uma receita
  despesa   -valor V -descricao D        registra uma despesa
  listar    [-de dd/mm/aaaa] [-ate dd/mm/aaaa]
                                         lista transações e o saldo do período
  exportar  -arquivo F [-planilha] [-de ...] [-ate ...]
                                         exporta o período para CSV e/ou planilha
  novo      -confirmar                   apaga todos os dados
`

// errUsage marks invalid invocations; run exits with status 2 for them.
var errUsage = errors.New("usage")

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "ajuda" {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Erro: %v\n", err)
		return 1
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)
	ctx = log.NewContext(ctx, logger)

	ledger, err := cli.InitLedger(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Erro: %v\n", err)
		return 1
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}()

	a := &app{
		ledger: ledger,
		stdout: stdout,
		stderr: stderr,
		sheets: func(ctx context.Context) (export.Exporter, error) {
			client, err := cli.InitSheets(ctx, cfg)
			if err != nil {
				return nil, err
			}
			if client == nil {
				return nil, errors.New("planilha não configurada (defina GOOGLE_SPREADSHEET_ID)")
			}
			return client, nil
		},
	}
	return a.exec(ctx, args)
}

// app holds the dependencies shared by every command.
type app struct {
	ledger *services.LedgerService
	sheets func(ctx context.Context) (export.Exporter, error)
	stdout io.Writer
	stderr io.Writer
}

func (a *app) exec(ctx context.Context, args []string) int {
	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "receita":
		err = a.add(ctx, core.Income, rest)
	case "despesa":
		err = a.add(ctx, core.Expense, rest)
	case "listar":
		err = a.list(ctx, rest)
	case "exportar":
		err = a.export(ctx, rest)
	case "novo":
		err = a.reset(ctx, rest)
	default:
		fmt.Fprintf(a.stderr, "Comando desconhecido: %s\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(a.stderr, "Erro: %s\n", userMessage(err))
		return 1
	}
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parse reports flag errors as errUsage; the flag package has already
// printed the details.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "argumento inesperado: %s\n", fs.Arg(0))
		return errUsage
	}
	return nil
}

func (a *app) add(ctx context.Context, kind core.Kind, args []string) error {
	fs := a.newFlagSet(string(kind))
	valor := fs.String("valor", "", "valor em R$ (aceita vírgula ou ponto)")
	descricao := fs.String("descricao", "", "descrição da transação")
	if err := parse(fs, args); err != nil {
		return err
	}

	amount, err := core.ParseAmount(*valor)
	if err != nil {
		return err
	}
	if err := core.ValidateDescription(*descricao); err != nil {
		return err
	}

	t, err := a.ledger.AddTransaction(ctx, kind, amount, *descricao)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Transação registrada: %s %s R$ %s %s\n",
		t.Timestamp, t.Kind.Label(), core.FormatAmount(t.Amount), t.Description)
	return nil
}

func (a *app) rangeFlags(fs *flag.FlagSet) (from, to *string) {
	from = fs.String("de", "", "data inicial dd/mm/aaaa (inclusiva)")
	to = fs.String("ate", "", "data final dd/mm/aaaa (inclusiva)")
	return from, to
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.newFlagSet("listar")
	from, to := a.rangeFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	txs, err := a.ledger.Filter(ctx, *from, *to)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Data\tTipo\tValor\tDescrição")
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\tR$ %s\t%s\n", t.Timestamp, t.Kind.Label(), core.FormatAmount(t.Amount), t.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	sum := a.ledger.Summarize(txs)
	fmt.Fprintf(a.stdout, "Receitas: R$ %s\n", core.FormatAmount(sum.Income))
	fmt.Fprintf(a.stdout, "Despesas: R$ %s\n", core.FormatAmount(sum.Expense))
	fmt.Fprintf(a.stdout, "Saldo do Período: R$ %s\n", core.FormatAmount(sum.Balance))
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := a.newFlagSet("exportar")
	arquivo := fs.String("arquivo", "", "caminho do arquivo CSV")
	planilha := fs.Bool("planilha", false, "exporta também para a planilha Google configurada")
	from, to := a.rangeFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if *arquivo == "" && !*planilha {
		fmt.Fprintln(a.stderr, "Informe -arquivo e/ou -planilha.")
		return errUsage
	}

	txs, err := a.ledger.Filter(ctx, *from, *to)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Fprintln(a.stdout, "Nenhuma transação encontrada no período.")
		return nil
	}

	var exporters []export.Exporter
	if *arquivo != "" {
		exporters = append(exporters, export.CSVFile{Path: *arquivo})
	}
	if *planilha {
		sheets, err := a.sheets(ctx)
		if err != nil {
			return err
		}
		exporters = append(exporters, sheets)
	}

	if err := export.All(ctx, txs, exporters...); err != nil {
		return err
	}
	for _, e := range exporters {
		fmt.Fprintf(a.stdout, "Relatório exportado para: %s\n", e.Name())
	}
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	fs := a.newFlagSet("novo")
	confirm := fs.Bool("confirmar", false, "confirma que todos os dados serão apagados")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*confirm {
		fmt.Fprintln(a.stderr, "Isto apaga todos os dados. Repita com -confirmar para continuar.")
		return errUsage
	}

	if err := a.ledger.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Controle financeiro reiniciado.")
	return nil
}

// userMessage maps domain errors to the messages shown to the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Insira um valor numérico válido."
	case errors.Is(err, core.ErrEmptyDescription):
		return "Insira uma descrição."
	case errors.Is(err, core.ErrInvalidDate):
		return "Datas inválidas. Use o formato dd/mm/aaaa."
	default:
		return err.Error()
	}
}
