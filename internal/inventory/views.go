package inventory

import (
	"sort"
	"strconv"
	"strings"
)

// BranchInventory aggregates records of one branch.
type BranchInventory struct {
	BranchName    string         `json:"branchName"`
	TotalItems    int            `json:"totalItems"`
	TotalStockIn  int            `json:"totalStockIn"`
	TotalStockOut int            `json:"totalStockOut"`
	AvgRetention  float64        `json:"avgRetention"`
	Items         map[string]int `json:"items"`
}

// DailyStats aggregates records of one date label.
type DailyStats struct {
	Date     string `json:"date"`
	StockIn  int    `json:"stockIn"`
	StockOut int    `json:"stockOut"`
	Count    int    `json:"count"`
}

// BranchMetrics compares inflow with the remaining balance of a branch.
type BranchMetrics struct {
	BranchName     string `json:"branchName"`
	StockIn        int    `json:"stockIn"`
	StockOut       int    `json:"stockOut"`
	StockRemaining int    `json:"stockRemaining"`
}

// DashboardSummary holds the headline figures of a record set.
type DashboardSummary struct {
	TotalValue  int    `json:"totalValue"`
	TotalItems  int    `json:"totalItems"`
	TopBranch   string `json:"topBranch"`
	RecordCount int    `json:"recordCount"`
	BranchCount int    `json:"branchCount"`
}

// BranchSummaries groups records by branch in first-appearance order. Branches
// whose name does not contain query (case-insensitive) are left out.
func BranchSummaries(records []Record, query string) []BranchInventory {
	index := make(map[string]int)
	var out []BranchInventory
	for _, r := range records {
		i, ok := index[r.BranchName]
		if !ok {
			i = len(out)
			index[r.BranchName] = i
			out = append(out, BranchInventory{BranchName: r.BranchName, Items: make(map[string]int)})
		}
		b := &out[i]
		b.TotalItems += r.CurrentCount
		b.TotalStockIn += r.StockIn
		b.TotalStockOut += r.StockOut
		b.Items[r.DeviceName] += r.CurrentCount
	}

	q := strings.ToLower(strings.TrimSpace(query))
	filtered := out[:0]
	for _, b := range out {
		if q != "" && !strings.Contains(strings.ToLower(b.BranchName), q) {
			continue
		}
		b.AvgRetention = retention(b.TotalStockIn, b.TotalStockOut)
		filtered = append(filtered, b)
	}
	return filtered
}

func retention(in, out int) float64 {
	if in <= 0 {
		return 0
	}
	r := float64(in-out) / float64(in)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Trend is a chronologically ordered list of daily stats.
type Trend []DailyStats

// Window returns the last n entries of the trend.
func (t Trend) Window(n int) Trend {
	if n <= 0 || n >= len(t) {
		return t
	}
	return t[len(t)-n:]
}

// DailyTrend groups records by date label and orders the result chronologically.
func DailyTrend(records []Record) Trend {
	index := make(map[string]int)
	var out Trend
	for _, r := range records {
		i, ok := index[r.Date]
		if !ok {
			i = len(out)
			index[r.Date] = i
			out = append(out, DailyStats{Date: r.Date})
		}
		out[i].StockIn += r.StockIn
		out[i].StockOut += r.StockOut
		out[i].Count += r.CurrentCount
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessDate(out[i].Date, out[j].Date)
	})
	return out
}

// BranchMetricsFor returns per-branch in/out/remaining totals ordered by inflow,
// highest first.
func BranchMetricsFor(records []Record) []BranchMetrics {
	index := make(map[string]int)
	var out []BranchMetrics
	for _, r := range records {
		i, ok := index[r.BranchName]
		if !ok {
			i = len(out)
			index[r.BranchName] = i
			out = append(out, BranchMetrics{BranchName: r.BranchName})
		}
		out[i].StockIn += r.StockIn
		out[i].StockOut += r.StockOut
		out[i].StockRemaining += r.CurrentCount
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StockIn > out[j].StockIn
	})
	return out
}

// Summarize computes the dashboard headline figures. unitValue prices every
// unit on hand.
func Summarize(records []Record, unitValue int) DashboardSummary {
	s := DashboardSummary{RecordCount: len(records), TopBranch: MainHub}
	outflow := make(map[string]int)
	var order []string
	for _, r := range records {
		s.TotalItems += r.CurrentCount
		if _, ok := outflow[r.BranchName]; !ok {
			order = append(order, r.BranchName)
		}
		outflow[r.BranchName] += r.StockOut
	}
	s.TotalValue = s.TotalItems * unitValue
	s.BranchCount = len(order)

	best := -1
	for _, name := range order {
		if outflow[name] > best {
			best = outflow[name]
			s.TopBranch = name
		}
	}
	return s
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

type dateKey struct {
	year, month, day int
}

// parseDateLabel reads M/D, M/D/YYYY and Mon/D labels.
func parseDateLabel(label string) (dateKey, bool) {
	parts := strings.Split(strings.TrimSpace(label), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return dateKey{}, false
	}

	var k dateKey
	if m, err := strconv.Atoi(parts[0]); err == nil {
		k.month = m
	} else if len(parts[0]) >= 3 {
		m, ok := monthNames[strings.ToLower(parts[0][:3])]
		if !ok {
			return dateKey{}, false
		}
		k.month = m
	} else {
		return dateKey{}, false
	}

	d, err := strconv.Atoi(parts[1])
	if err != nil {
		return dateKey{}, false
	}
	k.day = d

	if len(parts) == 3 {
		y, err := strconv.Atoi(parts[2])
		if err != nil {
			return dateKey{}, false
		}
		if y < 100 {
			y += 2000
		}
		k.year = y
	}
	return k, true
}

// lessDate orders parsable labels chronologically, then unparsable labels
// lexically, then the Recent sentinel.
func lessDate(a, b string) bool {
	if a == RecentDate || b == RecentDate {
		return a != RecentDate && b == RecentDate
	}
	ka, okA := parseDateLabel(a)
	kb, okB := parseDateLabel(b)
	switch {
	case okA && okB:
		if ka.year != kb.year {
			return ka.year < kb.year
		}
		if ka.month != kb.month {
			return ka.month < kb.month
		}
		return ka.day < kb.day
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}
