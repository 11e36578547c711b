package inventory

import (
	"strings"
)

// Sentinel labels used when a value cannot be derived from the source.
const (
	RecentDate    = "Recent"
	UnknownBranch = "Unknown"
	MainHub       = "Main Hub"
)

// Record is the atomic normalized inventory fact.
type Record struct {
	Date         string   `json:"date"`
	BranchName   string   `json:"branchName"`
	DeviceName   string   `json:"deviceName"`
	StockIn      int      `json:"stockIn"`
	StockOut     int      `json:"stockOut"`
	CurrentCount int      `json:"currentCount"`
	Remarks      string   `json:"remarks,omitempty"`
	Category     Category `json:"category,omitempty"`
}

// Key identifies a record within one ingestion pass.
type Key struct {
	Date       string
	BranchName string
	DeviceName string
}

// Key returns the consolidation key of the record.
func (r Record) Key() Key {
	return Key{Date: r.Date, BranchName: r.BranchName, DeviceName: r.DeviceName}
}

// Valid reports whether the record satisfies the record invariants.
func (r Record) Valid() bool {
	if strings.TrimSpace(r.DeviceName) == "" || IsAggregateLabel(r.DeviceName) {
		return false
	}
	return r.StockIn >= 0 && r.StockOut >= 0 && r.CurrentCount >= 0
}

var aggregateLabels = map[string]bool{
	"total":       true,
	"grand total": true,
	"subtotal":    true,
	"sub total":   true,
	"s/n":         true,
	"sn":          true,
	"s.n":         true,
}

// IsAggregateLabel reports whether a product cell is a footer or serial-number
// label rather than a device name.
func IsAggregateLabel(name string) bool {
	return aggregateLabels[strings.ToLower(strings.TrimSpace(name))]
}

// FilterByBranch returns the records whose branch name contains query,
// case-insensitively. An empty query returns records unchanged.
func FilterByBranch(records []Record, query string) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.BranchName), q) {
			out = append(out, r)
		}
	}
	return out
}
