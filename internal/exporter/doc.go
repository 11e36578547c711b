// Package exporter writes inventory records and their views as CSV or XLSX.
//
// CSV output starts with a UTF-8 BOM so spreadsheet applications detect the
// encoding. Example usage:
//
//	w := exporter.NewCSVWriter("/var/lib/invsync/exports", logger)
//	err := w.WriteRecordsFile("stock.csv", records)
//
//	// Streaming to an HTTP response
//	err = exporter.WriteRecords(rw, records, exporter.WriteOptions{BOMPrefix: true})
package exporter
