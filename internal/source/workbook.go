package source

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"invsync/internal/errors"
	"invsync/internal/normalize"
	"invsync/internal/tabular"
)

// WorkbookFetcher reads tabs from a local .xlsx workbook (Mode W).
type WorkbookFetcher struct {
	logger *slog.Logger
}

// NewWorkbookFetcher creates a workbook fetcher.
func NewWorkbookFetcher(logger *slog.Logger) *WorkbookFetcher {
	return &WorkbookFetcher{logger: logger.With(slog.String("transport", string(ModeWorkbook)))}
}

// Fetch opens the workbook at path and returns one tab per data sheet. Sheets
// whose rows cannot be read are skipped and listed in the result.
func (w *WorkbookFetcher) Fetch(ctx context.Context, path string) (*Result, error) {
	_, span := tracer.Start(ctx, "source.workbook.fetch")
	defer span.End()

	f, err := excelize.OpenFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFoundError("workbook " + path).WithRemedy("check the workbook path")
		}
		return nil, errors.NewParsingError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	res := &Result{Mode: ModeWorkbook}
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewNetworkError("workbook read interrupted", err)
		}
		if !IsDataTab(name) {
			w.logger.DebugContext(ctx, "skipping non-data sheet", slog.String("sheet", name))
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			w.logger.WarnContext(ctx, "sheet read failed, skipping",
				slog.String("sheet", name),
				slog.String("error", err.Error()),
			)
			res.Skipped = append(res.Skipped, SkippedTab{Name: name, Reason: err.Error(), Type: errors.ErrTypeParsing})
			continue
		}
		res.Tabs = append(res.Tabs, Tab{Name: name, Rows: trimRows(rows), Branch: normalize.BranchFromTab})
	}

	w.logger.InfoContext(ctx, "workbook read",
		slog.String("path", path),
		slog.Int("sheets", len(res.Tabs)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// trimRows trims every cell and drops rows left blank, so workbook tabs match
// the CSV tokenizer, which trims cells and never yields blank rows.
func trimRows(rows [][]string) tabular.Matrix {
	out := make(tabular.Matrix, 0, len(rows))
	for _, row := range rows {
		blank := true
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
			if row[i] != "" {
				blank = false
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}
