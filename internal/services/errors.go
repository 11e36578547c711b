package services

import "errors"

// Service errors
var (
	ErrWorkbookDisabled   = errors.New("workbook ingestion is not enabled")
	ErrWorkbookOutsideDir = errors.New("workbook outside the workbook directory")
	ErrStoreUnavailable   = errors.New("snapshot store unavailable")
)
