// Package validation checks local files the CLI reads and writes before any
// sync work starts.
package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"invsync/internal/errors"
)

// FileValidator validates workbook inputs and export outputs.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateWorkbook checks that path is a readable .xlsx file and not an
// Office lock file.
func (v *FileValidator) ValidateWorkbook(path string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".xlsx" {
		return errors.NewAppValidationError("workbook must be an .xlsx file, got " + quoteExt(ext))
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return errors.NewAppValidationError("workbook " + path + " is an Office lock file").
			WithRemedy("close the workbook in Excel and pass the real file")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.NewNotFoundError("workbook " + path).WithRemedy("check the workbook path")
	}
	if err != nil {
		return errors.NewParsingError("failed to stat workbook", err).WithContext("path", path)
	}
	if info.IsDir() {
		return errors.NewAppValidationError(path + " is a directory, not a workbook")
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.NewAccessError("workbook "+path+" is not readable", err)
	}
	f.Close()

	v.logger.Debug("Workbook validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputFile makes sure the directory of path exists and is writable,
// creating it when missing.
func (v *FileValidator) ValidateOutputFile(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return errors.NewAppValidationError(path + " is a directory, not a file")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewAccessError("failed to create output directory "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return errors.NewAccessError("output directory "+dir+" is not writable", err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return nil
}

func quoteExt(ext string) string {
	if ext == "" {
		return "no extension"
	}
	return ext
}
