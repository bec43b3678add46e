package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/export"
	"github.com/joseph-ayodele/docmapper/internal/extract"
	"github.com/joseph-ayodele/docmapper/internal/ocr"
	"github.com/joseph-ayodele/docmapper/internal/pdf"
	"github.com/joseph-ayodele/docmapper/internal/pipeline"
	"github.com/joseph-ayodele/docmapper/internal/repository"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

const usage = `usage: docmapper <command> [flags]

commands:
  ingest     walk a directory and ingest its PDFs
  cluster    fingerprint and cluster the ingested corpus
  scan       suggest field mappings from a cluster's reference document
  extract    replay a cluster's template over its members
  export     extract a cluster and write the results to a file
  caps       print the detected external tool capabilities
`

// printError prints to stderr, falling back to stdout if stderr fails.
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if len(os.Args) < 2 {
		printError("%s", usage)
		os.Exit(2)
	}

	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, command string, args []string) error {
	if command == "caps" {
		return runCaps(ctx)
	}

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.store.Close(logger)

	switch command {
	case "ingest":
		return app.runIngest(ctx, args)
	case "cluster":
		return app.runCluster(ctx, args)
	case "scan":
		return app.runScan(ctx, args)
	case "extract":
		return app.runExtract(ctx, args)
	case "export":
		return app.runExport(ctx, args)
	default:
		printError("%s", usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

type app struct {
	cfg      *common.Config
	store    *repository.Store
	pipeline *pipeline.Service
	export   *export.Service
	logger   *slog.Logger
}

func buildApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close(logger)
		return nil, err
	}

	docs := repository.NewDocumentRepository(store, logger)
	clusters := repository.NewClusterRepository(store, logger)

	var tplStore template.Store = repository.NewTemplateStore(store, logger)
	if cfg.Extraction.TemplateStore == "fs" {
		fsStore, err := template.NewFSStore(cfg.Extraction.TemplatesDir, logger)
		if err != nil {
			store.Close(logger)
			return nil, err
		}
		tplStore = fsStore
	}
	templates, errs := template.NewManager(ctx, tplStore, logger)
	for _, err := range errs {
		logger.Warn("broken template skipped at load", "error", err)
	}

	proc := pdf.NewProcessor(pdf.Config{
		Pdftotext: cfg.PDF.Pdftotext,
		Pdftoppm:  cfg.PDF.Pdftoppm,
		Pdfinfo:   cfg.PDF.Pdfinfo,
		DPI:       cfg.PDF.DPI,
		MaxPages:  cfg.PDF.MaxPages,
	}, logger)

	caps := pdf.Probe(ctx, pdf.ExecRunner{})
	var ocrReader extract.OCRReader
	if caps.OCR() {
		reader := ocr.NewReader(proc, cfg.OCR, ocr.DefaultPreprocessOptions(), logger)
		ocrReader = extract.TesseractOCR{Reader: reader}
		if !caps.HasLanguage(cfg.OCR.Language) {
			logger.Warn("configured OCR language packs are missing",
				"language", cfg.OCR.Language, "installed", caps.Languages)
		}
	} else {
		logger.Warn("tesseract or pdftoppm missing, running text-layer only")
	}

	engine := extract.NewEngine(
		extract.PDFTextLayer{Proc: proc},
		ocrReader,
		extract.DocumentGeometry{Proc: proc},
		logger,
	).WithWorkers(cfg.Extraction.Workers).WithRegionTimeout(cfg.Extraction.RegionTimeout)

	return &app{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline.NewService(cfg, docs, clusters, templates, proc, engine, logger),
		export:   export.NewService(logger),
		logger:   logger,
	}, nil
}

func runCaps(ctx context.Context) error {
	caps := pdf.Probe(ctx, pdf.ExecRunner{})
	fmt.Printf("pdftotext: %v\n", caps.Pdftotext)
	fmt.Printf("pdftoppm:  %v\n", caps.Pdftoppm)
	fmt.Printf("pdfinfo:   %v\n", caps.Pdfinfo)
	fmt.Printf("tesseract: %v\n", caps.Tesseract)
	if caps.Tesseract {
		fmt.Printf("languages: %v\n", caps.Languages)
	}
	return nil
}

func (a *app) runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	dir := fs.String("dir", "", "directory to ingest PDFs from (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("--dir is required")
	}

	docs, stats, err := a.pipeline.IngestDirectory(ctx, *dir)
	if err != nil {
		return err
	}
	fmt.Printf("ingested %d of %d matched files (%d scanned, %d failed)\n",
		len(docs), stats.Matched, stats.Scanned, stats.Failed)
	return nil
}

func (a *app) runCluster(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	assignment, err := a.pipeline.ClusterCorpus(ctx)
	if err != nil {
		return err
	}
	for _, c := range assignment.Clusters {
		if _, err := a.pipeline.EnsureTemplate(ctx, c.ID); err != nil {
			return err
		}
		fmt.Printf("%s: %d documents, reference %s\n", c.ID, len(c.Members), c.ReferenceID)
	}
	return nil
}

func (a *app) runScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	clusterID := fs.String("cluster", "", "cluster id to scan (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clusterID == "" {
		return fmt.Errorf("--cluster is required")
	}

	detections, err := a.pipeline.ScanReference(ctx, *clusterID)
	if err != nil {
		return err
	}
	for _, d := range detections {
		fmt.Printf("%-16s %-8s %q\n", d.Type, d.Confidence, d.Value)
	}
	return nil
}

func (a *app) runExtract(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	clusterID := fs.String("cluster", "", "cluster id to extract (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clusterID == "" {
		return fmt.Errorf("--cluster is required")
	}

	results, err := a.pipeline.ExtractCluster(ctx, *clusterID)
	if err != nil {
		return err
	}
	var ok, partial, failed int
	for _, res := range results {
		switch {
		case res.Failed:
			failed++
		case res.Partial():
			partial++
		default:
			ok++
		}
	}
	fmt.Printf("extracted %d documents: %d ok, %d partial, %d failed\n",
		len(results), ok, partial, failed)
	return nil
}

func (a *app) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	clusterID := fs.String("cluster", "", "cluster id to export (required)")
	out := fs.String("out", "", "output path, extension selects the format (.xlsx, .csv, .json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clusterID == "" {
		return fmt.Errorf("--cluster is required")
	}
	if *out == "" {
		*out = *clusterID + ".xlsx"
	}

	tpl, err := a.pipeline.Template(*clusterID)
	if err != nil {
		return err
	}
	results, err := a.pipeline.ExtractCluster(ctx, *clusterID)
	if err != nil {
		return err
	}

	var data []byte
	switch filepath.Ext(*out) {
	case ".xlsx":
		data, err = a.export.ResultsXLSX(tpl, results)
	case ".csv":
		data, err = a.export.ResultsCSV(tpl, results)
	case ".json":
		data, err = a.export.ResultsJSON(tpl, results)
	default:
		return fmt.Errorf("unsupported export format %q", filepath.Ext(*out))
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d documents)\n", *out, len(results))
	return nil
}
