package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"procure/internal"
	"procure/internal/config"
	"procure/internal/connectors"
	"procure/internal/fxrate"
	"procure/internal/listener"
	"procure/internal/logging"
	"procure/internal/pipeline"
	"procure/internal/query"
	"procure/internal/render"
	"procure/internal/report"
	"procure/internal/server"
	"procure/internal/status"
	"procure/internal/storage"
	"procure/internal/tracker"
	"procure/internal/tui"
	"procure/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogPath)
	must(err)
	defer log.Close()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	importer := pipeline.NewImportService(db, cfg, log)
	args := os.Args[2:]

	cmd := os.Args[1]
	switch cmd {
	case "sheets":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "xlsx workbook")
		_ = fs.Parse(args)
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		blob, err := os.ReadFile(*file)
		must(err)
		names, err := pipeline.SheetNames(blob)
		must(err)
		for _, name := range names {
			marker := " "
			if strings.EqualFold(name, cfg.DefaultSheet) {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, name)
		}
	case "pdf:text":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "rendered pdf report")
		_ = fs.Parse(args)
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		blob, err := os.ReadFile(*file)
		must(err)
		pages, err := render.PDFText(blob)
		must(err)
		for i, text := range pages {
			fmt.Printf("--- page %d ---\n%s\n", i+1, text)
		}
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "tracker export (.xlsx, .csv, .html, .xls, .eml)")
		sheet := fs.String("sheet", "", "sheet name (xlsx only)")
		_ = fs.Parse(args)
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		res, err := importer.ImportFile(*file, *sheet)
		must(err)
		if res.Reused {
			fmt.Printf("already imported id=%s rows=%d\n", res.Import.ID, res.Import.Rows)
			return
		}
		fmt.Printf("imported id=%s source=%s sheet=%s rows=%d\n", res.Import.ID, res.Import.Source, res.Import.Sheet, res.Import.Rows)
	case "imports":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max rows")
		_ = fs.Parse(args)
		recs, err := db.ListImports(*limit)
		must(err)
		printImports(recs)
	case "summary":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		src := sourceFlags(fs)
		label := fs.String("status", "", "only orders with this status label")
		out := fs.String("out", "", "write .xlsx or .pdf instead of printing")
		_ = fs.Parse(args)
		table, _, err := src.load(cfg, importer)
		must(err)
		doc := tracker.SummaryDocument(table)
		if strings.TrimSpace(*label) != "" {
			doc = tracker.StatusDocument(table, status.Label(*label))
		}
		must(emit(doc, *out, render.PDFOptions{Landscape: true}))
	case "ask":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		src := sourceFlags(fs)
		q := fs.String("q", "", "question, e.g. \"partial grn\" or a part number")
		rate := fs.Float64("rate", 0, "USD to INR rate for monthly reports")
		out := fs.String("out", "", "write .xlsx or .pdf instead of printing")
		_ = fs.Parse(args)
		question := strings.TrimSpace(*q)
		if question == "" {
			question = strings.Join(fs.Args(), " ")
		}
		if strings.TrimSpace(question) == "" {
			must(fmt.Errorf("--q is required"))
		}
		table, importID, err := src.load(cfg, importer)
		must(err)
		d := query.NewFromConfig(cfg).WithRate(pickRate(*rate, db, cfg))
		res, doc, err := d.Ask(table, question)
		must(err)
		if importID != "" {
			_ = db.LogQuery(importID, question, res.Intent.String())
		}
		log.Info("query %q -> %s", question, res.Intent)
		must(emit(doc, *out, render.PDFOptions{Landscape: true}))
	case "monthly":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		src := sourceFlags(fs)
		month := fs.String("month", "", "YYYY-MM, latest month when empty")
		rate := fs.Float64("rate", 0, "USD to INR rate")
		outDir := fs.String("out-dir", cfg.OutputDir, "directory for the xlsx and pdf")
		_ = fs.Parse(args)
		table, _, err := src.load(cfg, importer)
		must(err)
		r := pickRate(*rate, db, cfg)
		must(tracker.ValidateRate(r, cfg.USDINRRateMin, cfg.USDINRRateMax))
		m, err := tracker.BuildMonthly(table, *month, r)
		must(err)
		doc := tracker.MonthlyDocument(m)
		base := filepath.Join(*outDir, "Monthly_Report_"+strings.ReplaceAll(m.Label, " ", "_"))
		must(render.SaveXLSX(doc, base+".xlsx"))
		must(render.SavePDF(doc, base+".pdf", render.PDFOptions{Landscape: true}))
		fmt.Printf("monthly report %s lines=%d total=%s share=%s\n", m.Label, len(m.Lines), util.FormatINR(m.Total), util.FormatINR(m.Share))
		fmt.Printf("written %s.xlsx and %s.pdf\n", base, base)
	case "activity":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		src := sourceFlags(fs)
		date := fs.String("date", "", "dd-mm-yyyy, latest active date when empty")
		outDir := fs.String("out-dir", cfg.OutputDir, "directory for the xlsx and pdf")
		_ = fs.Parse(args)
		table, _, err := src.load(cfg, importer)
		must(err)
		from, to, ok := tracker.ActivityRange(table)
		if !ok {
			must(fmt.Errorf("no dated activity in table"))
		}
		day := to
		if strings.TrimSpace(*date) != "" {
			parsed, ok := util.ParseDate(*date)
			if !ok {
				must(fmt.Errorf("invalid --date %q", *date))
			}
			day = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, table.AsOf.Location())
		}
		fmt.Printf("activity available %s .. %s\n", from.Format(util.DisplayDate), to.Format(util.DisplayDate))
		a := tracker.BuildActivity(table, day)
		doc := tracker.ActivityDocument(table, a)
		if a.Empty() {
			must(render.WriteText(doc, os.Stdout))
			return
		}
		base := filepath.Join(*outDir, "Daily_Activity_"+day.Format("2006-01-02"))
		must(render.SaveXLSX(doc, base+".xlsx"))
		must(render.SavePDF(doc, base+".pdf", render.PDFOptions{Landscape: true, Serial: true}))
		must(render.WriteText(doc, os.Stdout))
		fmt.Printf("written %s.xlsx and %s.pdf\n", base, base)
	case "tui":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		src := sourceFlags(fs)
		_ = fs.Parse(args)
		table, importID, err := src.load(cfg, importer)
		must(err)
		name := src.describe(importID)
		d := query.NewFromConfig(cfg).WithRate(pickRate(0, db, cfg))
		model := tui.New(table, name, d, func(q string, r query.Resolution) {
			if importID != "" {
				_ = db.LogQuery(importID, q, r.Intent.String())
			}
		})
		must(tui.Run(model))
	case "queries":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max rows")
		_ = fs.Parse(args)
		rows, err := db.ListQueries(*limit)
		must(err)
		for _, r := range rows {
			fmt.Printf("%s  %-14s %s\n", r.CreatedAt, r.Intent, r.Query)
		}
	case "serve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("addr", cfg.ServerAddr, "listen address")
		_ = fs.Parse(args)
		srv := server.New(db, cfg, log)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown()
		}()
		must(srv.Listen(*addr))
	case "rates:sync":
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		rate, err := fxrate.Sync(ctx, db, fxrate.NewClient(cfg))
		must(err)
		fmt.Printf("USD 1 = INR %.4f stored as default rate\n", rate)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(args)
		ctx := context.Background()
		conn, err := listener.NewConnector(ctx, cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
		res, err := fetch.FetchAndStore(ctx, connectors.FetchQuery{Label: *label, Max: *max})
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d ignored=%d\n", *provider, res.Fetched, res.Stored, res.Known, res.Ignored)
	case "mail:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap, all when empty")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(args)
		if strings.TrimSpace(*messageID) != "" {
			if strings.TrimSpace(*provider) == "" {
				must(fmt.Errorf("--provider is required with --messageId"))
			}
			res, err := importer.ImportByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("email id=%d status=%s import=%s\n", res.EmailID, res.Status, res.ImportID)
			return
		}
		handled, imported, err := importer.ImportPending(*batch, *provider)
		must(err)
		fmt.Printf("pending emails handled=%d imported=%d\n", handled, imported)
	case "mail:listen":
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(listener.NewService(db, cfg, log).Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

// source selects what a reporting command reads: a file given with --input,
// a stored import given with --import, or the latest import.
type source struct {
	input    *string
	sheet    *string
	importID *string
}

func sourceFlags(fs *flag.FlagSet) source {
	return source{
		input:    fs.String("input", "", "read this file instead of a stored import"),
		sheet:    fs.String("sheet", "", "sheet name for --input"),
		importID: fs.String("import", "", "stored import id, latest when empty"),
	}
}

// load returns the table and, for stored imports, the import id.
func (s source) load(cfg config.Config, importer *pipeline.ImportService) (internal.Table, string, error) {
	if path := strings.TrimSpace(*s.input); path != "" {
		table, err := pipeline.LoadFile(cfg, path, *s.sheet, time.Now())
		return table, "", err
	}
	table, rec, err := importer.Load(strings.TrimSpace(*s.importID))
	if err != nil {
		return internal.Table{}, "", err
	}
	return table, rec.ID, nil
}

func (s source) describe(importID string) string {
	if importID == "" {
		return filepath.Base(*s.input)
	}
	return "import " + importID
}

func pickRate(flagRate float64, db *storage.DB, cfg config.Config) float64 {
	if flagRate > 0 {
		return flagRate
	}
	return fxrate.DefaultRate(db, cfg)
}

// emit prints doc as text tables, or writes it when out names an .xlsx or .pdf file.
func emit(doc report.Document, out string, opts render.PDFOptions) error {
	out = strings.TrimSpace(out)
	if out == "" {
		return render.WriteText(doc, os.Stdout)
	}
	var err error
	switch strings.ToLower(filepath.Ext(out)) {
	case ".xlsx":
		err = render.SaveXLSX(doc, out)
	case ".pdf":
		err = render.SavePDF(doc, out, opts)
	default:
		return fmt.Errorf("--out must end in .xlsx or .pdf: %s", out)
	}
	if err != nil {
		return err
	}
	fmt.Printf("written %s\n", out)
	return nil
}

func printImports(recs []internal.ImportRecord) {
	if len(recs) == 0 {
		fmt.Println("no imports yet")
		return
	}
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "Source", "Sheet", "Rows", "Email", "Imported At"})
	tw.SetAutoFormatHeaders(false)
	for _, r := range recs {
		email := ""
		if r.EmailID != nil {
			email = fmt.Sprint(*r.EmailID)
		}
		tw.Append([]string{r.ID, r.Source, r.Sheet, fmt.Sprint(r.Rows), email, r.ImportedAt})
	}
	tw.Render()
}

func usage() {
	fmt.Println("usage: procure <command>")
	fmt.Println("commands:")
	fmt.Println("  sheets --file=tracker.xlsx")
	fmt.Println("  import --file=tracker.xlsx [--sheet=PURCHASE_ORDER]")
	fmt.Println("  imports [--limit=20]")
	fmt.Println("  summary [--import=ID|--input=FILE] [--status=LABEL] [--out=x.xlsx|x.pdf]")
	fmt.Println("  ask --q=\"partial grn\" [--import=ID|--input=FILE] [--rate=84] [--out=...]")
	fmt.Println("  monthly [--month=2024-05] [--rate=84] [--out-dir=./out]")
	fmt.Println("  activity [--date=03-05-2024] [--out-dir=./out]")
	fmt.Println("  queries [--limit=20]")
	fmt.Println("  pdf:text --file=report.pdf")
	fmt.Println("  tui [--import=ID|--input=FILE]")
	fmt.Println("  serve [--addr=:8080]")
	fmt.Println("  rates:sync")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:import [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
