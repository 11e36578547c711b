package normalize

import (
	"strings"

	"invsync/internal/inventory"
	"invsync/internal/tabular"
)

// Tab is one named sheet of raw cells together with the branch policy of the
// transport that produced it.
type Tab struct {
	Name   string
	Rows   tabular.Matrix
	Branch BranchStrategy
}

// NormalizeTab walks every data row of a tab and emits one candidate record per
// classified, non-blank cell. Candidates are not consolidated.
func NormalizeTab(tab Tab) []inventory.Record {
	schema, ok := InferSchema(tab.Rows)
	if !ok {
		return nil
	}

	columns := classifyColumns(schema)
	productLabel := strings.ToLower(strings.TrimSpace(schema.Headers[schema.ProductColumn]))

	var out []inventory.Record
	for r := schema.HeaderRow + 1; r < len(tab.Rows); r++ {
		row := tab.Rows[r]
		device := cell(row, schema.ProductColumn)
		if skipDevice(device, productLabel) {
			continue
		}

		var remarks string
		if schema.HasRemarks() {
			remarks = cell(row, schema.RemarksColumn)
		}
		category := inventory.Categorize(device)

		for _, col := range columns {
			if col.index >= len(row) || IsBlankCell(row[col.index]) {
				continue
			}
			rec := inventory.Record{
				Date:       col.class.Date,
				BranchName: tab.Branch.Branch(tab.Name, col.header),
				DeviceName: device,
				Remarks:    remarks,
				Category:   category,
			}
			qty := CleanQuantity(row[col.index])
			switch col.class.Kind {
			case KindInbound:
				rec.StockIn = qty
			case KindOutbound:
				rec.StockOut = qty
			case KindBalance:
				rec.CurrentCount = qty
			}
			out = append(out, rec)
		}
	}
	return out
}

type column struct {
	index  int
	header string
	class  Classification
}

// classifyColumns pre-computes the role of every movement column; product,
// remarks and ignored columns are left out.
func classifyColumns(schema Schema) []column {
	var cols []column
	for i, h := range schema.Headers {
		if i == schema.ProductColumn || i == schema.RemarksColumn {
			continue
		}
		c := Classify(h)
		if c.Kind == KindIgnored {
			continue
		}
		cols = append(cols, column{index: i, header: h, class: c})
	}
	return cols
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func skipDevice(device, productLabel string) bool {
	if device == "" || inventory.IsAggregateLabel(device) {
		return true
	}
	lower := strings.ToLower(device)
	return lower == productLabel || strings.HasPrefix(lower, "total ")
}

// Records normalizes every tab of one sync and consolidates the candidates
// across tabs.
func Records(tabs []Tab) []inventory.Record {
	var candidates []inventory.Record
	for _, tab := range tabs {
		candidates = append(candidates, NormalizeTab(tab)...)
	}
	return Consolidate(candidates)
}
