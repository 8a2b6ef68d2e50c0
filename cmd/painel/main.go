package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"painel/internal"
	"painel/internal/config"
	"painel/internal/connectors"
	"painel/internal/dictionary"
	"painel/internal/listener"
	"painel/internal/logging"
	"painel/internal/pipeline"
	"painel/internal/registry"
	"painel/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	cmd := os.Args[1]
	if cmd == "dict:check" {
		must(dictCheck(cfg, os.Args[2:]))
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "etl:run":
		opts := pipeline.OptionsFromConfig(cfg)
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		fs.StringVar(&opts.ReportPath, "input", opts.ReportPath, "raw report exported by the card system (.csv/.tsv/.txt/.xlsx/.html/.eml)")
		fs.StringVar(&opts.ReportPath, "i", opts.ReportPath, "shorthand for --input")
		dados := fs.String("dados", opts.Outputs.Dados, "institution dataset, read as registry and overwritten")
		fs.StringVar(&opts.Outputs.Demografia, "demografia", opts.Outputs.Demografia, "demographic dataset to overwrite")
		fs.StringVar(&opts.Outputs.Pendencias, "pendencias", opts.Outputs.Pendencias, "pendency report path")
		fs.StringVar(&opts.EquivalenciasPath, "equivalencias", opts.EquivalenciasPath, "institution alias dictionary (.json/.yaml)")
		fs.StringVar(&opts.ConditionsPath, "mapa-deficiencias", opts.ConditionsPath, "condition to category dictionary (.json/.yaml)")
		fs.StringVar(&opts.WorkbookPath, "xlsx", "", "also write a workbook with the three datasets")
		_ = fs.Parse(os.Args[2:])
		opts.RegistryPath = *dados
		opts.Outputs.Dados = *dados

		svc := pipeline.NewProcessingService(db, cfg, log)
		res, err := svc.Run(ctx, opts)
		must(explain(err))
		printSummary(res)
	case "registry:pull":
		svc := registry.NewSyncService(db, cfg, log)
		count, err := svc.Pull(ctx)
		must(err)
		fmt.Printf("registry pulled: %d institutions -> %s\n", count, cfg.DadosPath)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ListenerProvider, "gmail|imap|dir")
		label := fs.String("label", cfg.ListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.NewConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap|dir (empty = all)")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", cfg.ListenerProcessBatch, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg, log)
		if strings.TrimSpace(*messageID) != "" {
			if *provider == "" {
				must(fmt.Errorf("--provider is required with --messageId"))
			}
			res, err := processor.ProcessByProviderMessageID(ctx, *provider, *messageID)
			must(explain(err))
			fmt.Printf("email id=%d status=%s\n", res.EmailID, res.Status)
			if res.Run != nil {
				printSummary(*res.Run)
			}
			return
		}
		processed, failed, err := processor.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d failed=%d\n", processed, failed)
	case "mail:listen":
		s := listener.NewService(db, cfg, log)
		must(s.Run(ctx))
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		source := fs.String("source", "", "file|email|dir")
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(storage.RunFilter{Source: *source, Limit: *limit})
		must(err)
		printRuns(runs)
	case "runs:pendencies":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.Int("run", 0, "run id")
		traceID := fs.String("trace", "", "run trace id")
		reason := fs.String("reason", "", "institution_not_found|condition_not_mapped|invalid_age")
		_ = fs.Parse(os.Args[2:])
		if *runID == 0 && *traceID != "" {
			run, err := db.GetRunByTraceID(*traceID)
			must(err)
			if run == nil {
				must(fmt.Errorf("no run with trace %s", *traceID))
			}
			*runID = run.ID
		}
		if *runID == 0 {
			must(fmt.Errorf("--run or --trace is required"))
		}
		rows, err := db.ListRunPendencies(storage.PendencyFilter{RunID: *runID, Reason: internal.Reason(*reason)})
		must(err)
		printPendencies(rows)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		sheets, err := pipeline.SheetsFromFiles(pipeline.OutputPaths{
			Dados:      cfg.DadosPath,
			Demografia: cfg.DemografiaPath,
			Pendencias: cfg.PendenciasPath,
		})
		must(err)
		must(pipeline.ExportWorkbookXLSX(sheets, *out))
		fmt.Printf("exported %d sheets to %s\n", len(sheets), *out)
	default:
		usage()
		os.Exit(1)
	}
}

func dictCheck(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("dict:check", flag.ExitOnError)
	aliasesPath := fs.String("equivalencias", cfg.EquivalenciasPath, "institution alias dictionary")
	conditionsPath := fs.String("mapa-deficiencias", cfg.MapaDeficienciasPath, "condition to category dictionary")
	_ = fs.Parse(args)

	aliases, err := dictionary.Load(*aliasesPath)
	if err != nil && !errors.Is(err, dictionary.ErrNotFound) {
		return err
	}
	if err != nil {
		fmt.Printf("warning: %v\n", err)
	}
	fmt.Printf("%s: %d aliases\n", *aliasesPath, aliases.Len())

	conditions, err := dictionary.Load(*conditionsPath)
	if err != nil && !errors.Is(err, dictionary.ErrNotFound) {
		return err
	}
	if err != nil {
		fmt.Printf("warning: %v\n", err)
	}
	if _, err := pipeline.NewClassifier(conditions); err != nil {
		return fmt.Errorf("%s: %w", *conditionsPath, err)
	}
	fmt.Printf("%s: %d conditions\n", *conditionsPath, conditions.Len())

	overlaps := dictionary.Overlaps(conditions)
	conflicting := map[string]bool{}
	for _, o := range dictionary.Conflicting(overlaps) {
		conflicting[o.Shadowed.Key] = true
	}
	for _, o := range overlaps {
		marker := "same category"
		if conflicting[o.Shadowed.Key] {
			marker = "CONFLICT"
		}
		fmt.Printf("  %q (%s) never reached by substring: %q (%s) comes first [%s]\n",
			o.Shadowed.Raw, o.Shadowed.Value, o.By.Raw, o.By.Value, marker)
	}
	return nil
}

func printSummary(res pipeline.RunResult) {
	fmt.Printf("rows processed: %d (applied=%d)\n", res.RowsProcessed, res.RowsApplied)
	if res.WroteReport {
		fmt.Printf("pendencies: %d (file: %s)\n", res.Pendencies, res.Outputs.Pendencias)
	} else {
		fmt.Println("pendencies: 0")
	}
	fmt.Printf("dados updated at: %s\n", res.Outputs.Dados)
	fmt.Printf("demografia updated at: %s\n", res.Outputs.Demografia)
	fmt.Printf("trace: %s\n", res.TraceID)
}

func printRuns(runs []internal.RunRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSOURCE\tROWS\tAPPLIED\tPENDENCIES\tINPUT\tTRACE")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.CreatedAt, r.Source, r.RowsProcessed, r.RowsApplied, r.Pendencies, r.InputRef, r.TraceID)
	}
	_ = w.Flush()
}

func printPendencies(rows []internal.PendencyRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tREASON\tINSTITUTION\tDISABILITY\tAGE")
	for _, p := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.LineNo, p.Reason, p.Institution, p.Disability, p.Age)
	}
	_ = w.Flush()
}

// explain names the violated precondition for fatal run errors.
func explain(err error) error {
	var missing *pipeline.MissingColumnError
	if errors.As(err, &missing) {
		return fmt.Errorf("input report is missing the %s column: %w", missing.Field, err)
	}
	return err
}

func usage() {
	fmt.Println("usage: painel <command>")
	fmt.Println("commands:")
	fmt.Println("  etl:run [--input=relatorio.csv] [--dados=...] [--demografia=...] [--pendencias=...]")
	fmt.Println("          [--equivalencias=...] [--mapa-deficiencias=...] [--xlsx=out/painel.xlsx]")
	fmt.Println("  dict:check [--equivalencias=...] [--mapa-deficiencias=...]")
	fmt.Println("  registry:pull")
	fmt.Println("  mail:fetch --provider=gmail|imap|dir --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap|dir] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  runs:list [--source=file|email|dir] [--limit=20]")
	fmt.Println("  runs:pendencies --run=1|--trace=... [--reason=...]")
	fmt.Println("  export:xlsx --out=./out/painel.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
