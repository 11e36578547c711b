package normalize

import (
	"invsync/internal/inventory"
)

// Consolidate merges candidates sharing a (date, branch, device) key. Flows are
// summed, the last non-empty remark and the last positive balance win, so a
// later zero never erases an earlier balance. Output keeps first-appearance
// order, which makes the function idempotent.
func Consolidate(candidates []inventory.Record) []inventory.Record {
	index := make(map[inventory.Key]int, len(candidates))
	out := make([]inventory.Record, 0, len(candidates))

	for _, c := range candidates {
		i, seen := index[c.Key()]
		if !seen {
			index[c.Key()] = len(out)
			out = append(out, c)
			continue
		}
		merged := &out[i]
		merged.StockIn += c.StockIn
		merged.StockOut += c.StockOut
		if c.Remarks != "" {
			merged.Remarks = c.Remarks
		}
		if c.CurrentCount > 0 {
			merged.CurrentCount = c.CurrentCount
		}
		if merged.Category == "" {
			merged.Category = c.Category
		}
	}
	return out
}
