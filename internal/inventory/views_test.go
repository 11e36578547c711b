package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{Date: "1/5", BranchName: "Lagos", DeviceName: "Widget A", StockIn: 10, CurrentCount: 40},
		{Date: "1/5", BranchName: "Lagos", DeviceName: "Widget B", CurrentCount: 15},
		{Date: "1/4", BranchName: "Abuja", DeviceName: "Widget A", StockIn: 3, StockOut: 7, CurrentCount: 2},
		{Date: "Recent", BranchName: "Abuja", DeviceName: "Cable", StockOut: 1, CurrentCount: 9},
	}
}

func TestBranchSummaries(t *testing.T) {
	branches := BranchSummaries(sampleRecords(), "")
	require.Len(t, branches, 2)

	lagos := branches[0]
	assert.Equal(t, "Lagos", lagos.BranchName)
	assert.Equal(t, 55, lagos.TotalItems)
	assert.Equal(t, 10, lagos.TotalStockIn)
	assert.Equal(t, 0, lagos.TotalStockOut)
	assert.Equal(t, map[string]int{"Widget A": 40, "Widget B": 15}, lagos.Items)
	assert.Equal(t, 1.0, lagos.AvgRetention)

	abuja := branches[1]
	assert.Equal(t, 11, abuja.TotalItems)
	assert.Equal(t, 0.0, abuja.AvgRetention)

	t.Run("filter is case-insensitive", func(t *testing.T) {
		filtered := BranchSummaries(sampleRecords(), "ABU")
		require.Len(t, filtered, 1)
		assert.Equal(t, "Abuja", filtered[0].BranchName)
	})
}

func TestDailyTrend(t *testing.T) {
	trend := DailyTrend(sampleRecords())
	require.Len(t, trend, 3)
	assert.Equal(t, []string{"1/4", "1/5", "Recent"}, []string{trend[0].Date, trend[1].Date, trend[2].Date})
	assert.Equal(t, DailyStats{Date: "1/5", StockIn: 10, Count: 55}, trend[1])

	assert.Len(t, trend.Window(2), 2)
	assert.Equal(t, "1/5", trend.Window(2)[0].Date)
	assert.Len(t, trend.Window(0), 3)
}

func TestLessDate(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1/4", "1/5", true},
		{"1/5", "1/4", false},
		{"12/31", "1/1/2025", true},
		{"Jan/3", "2/1", true},
		{"Recent", "1/1", false},
		{"1/1", "Recent", true},
		{"week one", "1/1", false},
		{"1/1", "week one", true},
		{"alpha", "beta", true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"<"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, lessDate(tt.a, tt.b))
		})
	}
}

func TestBranchMetricsFor(t *testing.T) {
	metrics := BranchMetricsFor(sampleRecords())
	require.Len(t, metrics, 2)
	assert.Equal(t, BranchMetrics{BranchName: "Lagos", StockIn: 10, StockRemaining: 55}, metrics[0])
	assert.Equal(t, BranchMetrics{BranchName: "Abuja", StockIn: 3, StockOut: 8, StockRemaining: 11}, metrics[1])
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleRecords(), 800)
	assert.Equal(t, 66, s.TotalItems)
	assert.Equal(t, 66*800, s.TotalValue)
	assert.Equal(t, "Abuja", s.TopBranch)
	assert.Equal(t, 4, s.RecordCount)
	assert.Equal(t, 2, s.BranchCount)

	empty := Summarize(nil, 800)
	assert.Equal(t, MainHub, empty.TopBranch)
	assert.Zero(t, empty.TotalValue)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{"AC180 Power Station", CategoryMainUnit},
		{"Solar Charging Cable", CategoryAccessory},
		{"Car Charger", CategoryAccessory},
		{"Carrying Bag L", CategoryAccessory},
		{"EB3A", CategoryMainUnit},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.name))
		})
	}
}

func TestRecordValid(t *testing.T) {
	assert.True(t, Record{DeviceName: "Widget"}.Valid())
	assert.False(t, Record{DeviceName: " "}.Valid())
	assert.False(t, Record{DeviceName: "TOTAL"}.Valid())
	assert.False(t, Record{DeviceName: "S/N"}.Valid())
	assert.False(t, Record{DeviceName: "Widget", StockIn: -1}.Valid())
}

func TestFilterByBranch(t *testing.T) {
	assert.Len(t, FilterByBranch(sampleRecords(), "lag"), 2)
	assert.Len(t, FilterByBranch(sampleRecords(), ""), 4)
	assert.Empty(t, FilterByBranch(sampleRecords(), "kano"))
}
