package normalize

import (
	"regexp"
	"strings"

	"invsync/internal/tabular"
)

// HeaderLookahead bounds how many leading rows are searched for the header.
const HeaderLookahead = 10

var (
	headerKeywords = []string{"product", "sku", "device", "item"}

	productColumnPattern = regexp.MustCompile(`(?i)product|device|sku|item|name`)
	remarksColumnPattern = regexp.MustCompile(`(?i)remark|source|destination|\bfrom\b|\bto\b|recipient|supplier`)
)

// Schema describes where the data of one tab lives.
type Schema struct {
	HeaderRow     int
	ProductColumn int
	// RemarksColumn is -1 when the tab has no remarks column.
	RemarksColumn int
	Headers       []string
}

// HasRemarks reports whether a remarks column was found.
func (s Schema) HasRemarks() bool {
	return s.RemarksColumn >= 0
}

// InferSchema locates the header row and the product and remarks columns of a
// tab. ok is false when no product column exists, meaning the tab holds no
// inventory data.
func InferSchema(rows tabular.Matrix) (schema Schema, ok bool) {
	if len(rows) == 0 {
		return Schema{RemarksColumn: -1, ProductColumn: -1}, false
	}

	schema = Schema{HeaderRow: findHeaderRow(rows), ProductColumn: -1, RemarksColumn: -1}
	schema.Headers = rows[schema.HeaderRow]

	for i, h := range schema.Headers {
		if productColumnPattern.MatchString(h) {
			schema.ProductColumn = i
			break
		}
	}
	if schema.ProductColumn < 0 {
		return schema, false
	}

	for i, h := range schema.Headers {
		if i == schema.ProductColumn {
			continue
		}
		if remarksColumnPattern.MatchString(h) {
			schema.RemarksColumn = i
			break
		}
	}
	return schema, true
}

func findHeaderRow(rows tabular.Matrix) int {
	limit := len(rows)
	if limit > HeaderLookahead {
		limit = HeaderLookahead
	}
	for i := 0; i < limit; i++ {
		joined := strings.ToLower(strings.Join(rows[i], " "))
		for _, kw := range headerKeywords {
			if strings.Contains(joined, kw) {
				return i
			}
		}
	}
	return 0
}
