package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"invsync/internal/inventory"
)

// Workbook sheet names.
const (
	RecordsSheet  = "Records"
	BranchesSheet = "Branches"
)

// WriteWorkbook writes an .xlsx with the records and their branch summaries.
func WriteWorkbook(w io.Writer, records []inventory.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.Date, r.BranchName, r.DeviceName, string(r.Category),
			r.StockIn, r.StockOut, r.CurrentCount, r.Remarks,
		})
	}
	if err := writeSheet(f, RecordsSheet, RecordHeaders, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(BranchesSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	branches := inventory.BranchSummaries(records, "")
	rows = make([][]interface{}, 0, len(branches))
	for _, b := range branches {
		rows = append(rows, []interface{}{b.BranchName, b.TotalItems, b.TotalStockIn, b.TotalStockOut, b.AvgRetention})
	}
	if err := writeSheet(f, BranchesSheet, BranchHeaders, rows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream for %s: %w", sheet, err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i, err)
		}
	}
	return sw.Flush()
}
