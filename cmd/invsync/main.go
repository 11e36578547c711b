// Command invsync runs one sync against the configured sheet (or a local
// .xlsx workbook) and writes a view of the result.
//
//	invsync -view branches -format csv -out branches.csv
//	invsync -workbook stock.xlsx -format xlsx -out snapshot.xlsx
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"invsync/internal/config"
	"invsync/internal/exporter"
	"invsync/internal/infrastructure"
	"invsync/internal/services"
	"invsync/internal/source"
	"invsync/internal/store"
	"invsync/internal/validation"
)

type options struct {
	configFile string
	workbook   string
	apiKey     string
	token      string
	view       string
	format     string
	branch     string
	window     int
	out        string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("invsync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configFile, "config", "", "YAML config file (defaults to config.yaml lookup)")
	fs.StringVar(&o.workbook, "workbook", "", "read tabs from a local .xlsx file instead of the sheet")
	fs.StringVar(&o.apiKey, "api-key", "", "Sheets API key (overrides INV_SHEET_API_KEY)")
	fs.StringVar(&o.token, "token", "", "OAuth access token")
	fs.StringVar(&o.view, "view", "records", "records, branches, daily or summary")
	fs.StringVar(&o.format, "format", "json", "json, csv or xlsx")
	fs.StringVar(&o.branch, "branch", "", "only records of this branch (records view)")
	fs.IntVar(&o.window, "window", 0, "last N dates (daily view)")
	fs.StringVar(&o.out, "out", "", "output file (defaults to stdout)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch o.view {
	case "records", "branches", "daily", "summary":
	default:
		return o, fmt.Errorf("unknown view %q", o.view)
	}
	switch o.format {
	case "json", "csv":
	case "xlsx":
		if o.view != "records" {
			return o, fmt.Errorf("xlsx output supports only the records view")
		}
	default:
		return o, fmt.Errorf("unknown format %q", o.format)
	}
	if o.format == "csv" && o.view == "summary" {
		return o, fmt.Errorf("csv output does not support the summary view")
	}
	if o.workbook != "" {
		if err := services.ValidateWorkbookPath(o.workbook); err != nil {
			return o, err
		}
	}
	return o, nil
}

func loadConfig(o options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFrom(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// A workbook run needs no sheet settings.
		if o.workbook == "" {
			return nil, err
		}
		slog.Warn("Failed to load config, using defaults", slog.String("error", err.Error()))
		cfg = config.Default()
	}
	return cfg, nil
}

// preflight checks the files of a run before any network or workbook work.
func preflight(o options, v *validation.FileValidator) error {
	if o.workbook != "" {
		if err := v.ValidateWorkbook(o.workbook); err != nil {
			return err
		}
	}
	if o.out != "" {
		return v.ValidateOutputFile(o.out)
	}
	return nil
}

func run(ctx context.Context, o options, stdout io.Writer, logger *slog.Logger, cfg *config.Config) error {
	sheet := cfg.Sheet
	selector := source.NewSelector(source.Config{
		SpreadsheetID:     sheet.SpreadsheetID,
		PublicGID:         sheet.PublicGID,
		PublicLabel:       sheet.PublicLabel,
		APIKey:            sheet.APIKey,
		APIEndpoint:       sheet.APIEndpoint,
		PublicBaseURL:     sheet.PublicBaseURL,
		MaxConcurrentTabs: sheet.MaxConcurrentTabs,
		RequestsPerSecond: sheet.RequestsPerSecond,
		Timeout:           sheet.Timeout,
	}, logger)

	svc := services.NewInventoryService(selector, source.NewWorkbookFetcher(logger), store.NewMemoryStore(),
		services.InventoryOptions{
			SyncTimeout: cfg.Sync.Timeout,
			UnitValue:   int(cfg.Dashboard.UnitValue),
		}, logger)

	ctx = infrastructure.WithTraceID(ctx, infrastructure.GenerateTraceID())
	status, err := svc.Sync(ctx, services.SyncRequest{
		Credentials: source.Credentials{APIKey: o.apiKey, AccessToken: o.token},
		Workbook:    o.workbook,
	})
	if err != nil {
		return err
	}
	for _, s := range status.Skipped {
		logger.WarnContext(ctx, "tab skipped", slog.String("tab", s.Name), slog.String("reason", s.Reason))
	}

	if o.out == "" {
		return render(stdout, o, svc)
	}
	// The output file is created only after the sync succeeded.
	w := exporter.NewCSVWriter("", logger)
	if o.format == "csv" && o.view == "records" {
		return w.WriteRecordsFile(o.out, svc.Records(o.branch))
	}
	return w.WriteFile(o.out, func(out io.Writer) error {
		return render(out, o, svc)
	})
}

func render(out io.Writer, o options, svc *services.InventoryService) error {
	switch o.format {
	case "xlsx":
		return exporter.WriteWorkbook(out, svc.Records(o.branch))
	case "csv":
		opts := exporter.WriteOptions{BOMPrefix: o.out != ""}
		switch o.view {
		case "branches":
			return exporter.WriteBranches(out, svc.Branches(""), opts)
		case "daily":
			return exporter.WriteDaily(out, svc.Daily(o.window), opts)
		default:
			return exporter.WriteRecords(out, svc.Records(o.branch), opts)
		}
	default:
		var v interface{}
		switch o.view {
		case "branches":
			v = svc.Branches("")
		case "daily":
			v = svc.Daily(o.window)
		case "summary":
			v = svc.Summary()
		default:
			v = svc.Records(o.branch)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", slog.String("error", err.Error()))
	}

	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "invsync:", err)
		os.Exit(2)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invsync:", err)
		os.Exit(1)
	}
	// Logs go to stderr so stdout carries only the export.
	logger := infrastructure.NewLogger(os.Stderr, cfg.Logging.Level)

	if err := preflight(o, validation.NewFileValidator(logger)); err != nil {
		fmt.Fprintln(os.Stderr, "invsync:", err)
		os.Exit(1)
	}

	if err := run(context.Background(), o, os.Stdout, logger, cfg); err != nil {
		logger.Error("Sync failed", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, "invsync:", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
