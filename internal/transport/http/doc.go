// Package http implements the JSON API over the inventory snapshot.
//
// Handlers stay thin: they parse and validate the request, call the service
// and render the result. Failures are rendered as RFC 7807 problems by
// errors.ErrorHandler, so a rejected credential answers 401, a private sheet
// 403, a missing spreadsheet 404 and an unreachable upstream 502.
//
// Routes mounted under /api/inventory:
//
//	GET  /records?branch=   snapshot records
//	GET  /branches?q=       per-branch totals
//	GET  /daily?window=     per-date trend
//	GET  /metrics           per-branch flow metrics
//	GET  /summary           dashboard figures and sync status
//	GET  /status            last sync status
//	POST /sync              run a sync
//	GET  /export.csv        snapshot as CSV
//	GET  /export.xlsx       snapshot as a workbook
package http
