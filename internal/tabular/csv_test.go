package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Matrix
	}{
		{
			name:  "quoted comma is not a separator",
			input: `a,"b,c",d`,
			want:  Matrix{{"a", "b,c", "d"}},
		},
		{
			name:  "crlf and lf line endings",
			input: "a,b\r\nc,d\ne,f\r\n",
			want:  Matrix{{"a", "b"}, {"c", "d"}, {"e", "f"}},
		},
		{
			name:  "blank lines are skipped",
			input: "a,b\n\n   \n\r\nc,d",
			want:  Matrix{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "cells are trimmed",
			input: "  a , \" b \" ,c  ",
			want:  Matrix{{"a", "b", "c"}},
		},
		{
			name:  "empty cells are kept",
			input: "a,,c,",
			want:  Matrix{{"a", "", "c", ""}},
		},
		{
			name:  "unterminated quote swallows the rest of the line",
			input: `a,"b,c`,
			want:  Matrix{{"a", "b,c"}},
		},
		{
			name:  "doubled quotes are not unescaped",
			input: `"say ""hi""",x`,
			want:  Matrix{{"say hi", "x"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCSV(tt.input))
		})
	}
}

func TestParseCSVReader(t *testing.T) {
	m, err := ParseCSVReader(strings.NewReader("S/N,Product\n1,Widget"))
	require.NoError(t, err)
	assert.Equal(t, Matrix{{"S/N", "Product"}, {"1", "Widget"}}, m)
}

func TestFromValues(t *testing.T) {
	m := FromValues([][]interface{}{
		{"Product", " 1/5 Balance "},
		{"Widget", float64(40), true, nil},
	})
	assert.Equal(t, Matrix{{"Product", "1/5 Balance"}, {"Widget", "40", "true", ""}}, m)
}

func TestMatrixCell(t *testing.T) {
	m := Matrix{{"a", "b"}, {"c"}}
	assert.Equal(t, "b", m.Cell(0, 1))
	assert.Equal(t, "", m.Cell(1, 1))
	assert.Equal(t, "", m.Cell(5, 0))
	assert.Equal(t, "", m.Cell(0, -1))
}
