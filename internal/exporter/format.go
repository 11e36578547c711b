package exporter

import (
	"strconv"

	"invsync/internal/inventory"
)

// RecordHeaders is the column order of record exports.
var RecordHeaders = []string{"Date", "Branch", "Device", "Category", "Stock In", "Stock Out", "Current Count", "Remarks"}

// RecordRow renders one record in RecordHeaders order.
func RecordRow(r inventory.Record) []string {
	return []string{
		r.Date,
		r.BranchName,
		r.DeviceName,
		string(r.Category),
		formatInt(r.StockIn),
		formatInt(r.StockOut),
		formatInt(r.CurrentCount),
		r.Remarks,
	}
}

// BranchHeaders is the column order of branch summary exports.
var BranchHeaders = []string{"Branch", "Total Items", "Stock In", "Stock Out", "Avg Retention"}

// BranchRow renders one branch summary.
func BranchRow(b inventory.BranchInventory) []string {
	return []string{
		b.BranchName,
		formatInt(b.TotalItems),
		formatInt(b.TotalStockIn),
		formatInt(b.TotalStockOut),
		formatFloat(b.AvgRetention),
	}
}

// DailyHeaders is the column order of daily trend exports.
var DailyHeaders = []string{"Date", "Stock In", "Stock Out", "Current Count"}

// DailyRow renders one day of the trend.
func DailyRow(d inventory.DailyStats) []string {
	return []string{d.Date, formatInt(d.StockIn), formatInt(d.StockOut), formatInt(d.Count)}
}

// formatFloat formats with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
