// Package tabular turns raw spreadsheet payloads into a rectangular matrix of
// string cells.
package tabular

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Matrix is an ordered list of rows of trimmed string cells.
type Matrix [][]string

// Cell returns the cell at (row, col) or "" when it is out of range.
func (m Matrix) Cell(row, col int) string {
	if row < 0 || row >= len(m) || col < 0 || col >= len(m[row]) {
		return ""
	}
	return m[row][col]
}

// ParseCSV splits comma separated text into rows.
//
// Commas inside a double-quoted span are kept, the quote characters themselves
// are dropped and every cell is trimmed. Blank lines produce no row. Doubled
// quotes inside a quoted field are not unescaped; each one just toggles the
// quoted state. Malformed quoting never fails, characters are accumulated
// literally.
func ParseCSV(text string) Matrix {
	var result Matrix
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		result = append(result, splitLine(line))
	}
	return result
}

// ParseCSVReader reads r fully and parses it with ParseCSV.
func ParseCSVReader(r io.Reader) (Matrix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv body: %w", err)
	}
	return ParseCSV(string(data)), nil
}

func splitLine(line string) []string {
	var (
		row     []string
		cur     strings.Builder
		inQuote bool
	)
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case ch == ',' && !inQuote:
			row = append(row, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	return append(row, strings.TrimSpace(cur.String()))
}

// FromValues converts the loosely typed cell grid returned by the Sheets API
// into a Matrix.
func FromValues(values [][]interface{}) Matrix {
	m := make(Matrix, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strings.TrimSpace(cellString(v))
		}
		m = append(m, cells)
	}
	return m
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
