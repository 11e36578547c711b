package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"invsync/internal/inventory"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and rows to w.
func WriteCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRecords streams records to w in RecordHeaders order.
func WriteRecords(w io.Writer, records []inventory.Record, options WriteOptions) error {
	sw, err := NewStreamWriter(w, RecordHeaders, options.BOMPrefix)
	if err != nil {
		return err
	}
	for i, r := range records {
		if err := sw.WriteRecord(RecordRow(r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return sw.Flush()
}

// WriteBranches writes branch summaries to w.
func WriteBranches(w io.Writer, branches []inventory.BranchInventory, options WriteOptions) error {
	rows := make([][]string, len(branches))
	for i, b := range branches {
		rows[i] = BranchRow(b)
	}
	return WriteCSV(w, WriteOptions{Headers: BranchHeaders, Records: rows, BOMPrefix: options.BOMPrefix})
}

// WriteDaily writes the daily trend to w.
func WriteDaily(w io.Writer, trend []inventory.DailyStats, options WriteOptions) error {
	rows := make([][]string, len(trend))
	for i, d := range trend {
		rows[i] = DailyRow(d)
	}
	return WriteCSV(w, WriteOptions{Headers: DailyHeaders, Records: rows, BOMPrefix: options.BOMPrefix})
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	writer *csv.Writer
}

// NewStreamWriter writes the optional BOM and headers, then returns a writer
// for the rows.
func NewStreamWriter(w io.Writer, headers []string, bom bool) (*StreamWriter, error) {
	if bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	writer := csv.NewWriter(w)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Flush flushes buffered rows and reports any write error.
func (s *StreamWriter) Flush() error {
	s.writer.Flush()
	return s.writer.Error()
}

// CSVWriter writes export files below a base directory.
type CSVWriter struct {
	baseDir string
	logger  *slog.Logger
}

// NewCSVWriter creates a writer anchored at baseDir. An empty baseDir keeps
// relative paths relative to the working directory.
func NewCSVWriter(baseDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{baseDir: baseDir, logger: logger}
}

// WriteRecordsFile writes records to filePath, creating parent directories.
func (w *CSVWriter) WriteRecordsFile(filePath string, records []inventory.Record) error {
	w.logger.Info("writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(records)))

	return w.WriteFile(filePath, func(out io.Writer) error {
		return WriteRecords(out, records, WriteOptions{BOMPrefix: true})
	})
}

// WriteFile creates filePath and fills it with write. A failed write removes
// the file so no partial export is left behind.
func (w *CSVWriter) WriteFile(filePath string, write func(io.Writer) error) error {
	fullPath := w.resolvePath(filePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	err = write(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return err
	}
	return nil
}

// resolvePath keeps absolute paths and anchors relative ones at baseDir.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.baseDir == "" {
		return filePath
	}
	return filepath.Join(w.baseDir, filePath)
}
