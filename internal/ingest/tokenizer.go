// Package ingest turns uploaded sales files into canonical sale records:
// tokenizing, header resolution, record building and batched persistence.
package ingest

import "strings"

// Table is a tokenized upload: one header row and the data rows beneath it.
// Every row in Rows has exactly len(Headers) fields.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tokenize splits CSV text into a Table. A double quote toggles quoted mode,
// in which commas are literal; quote characters themselves are dropped.
// Unbalanced quotes swallow the rest of the line instead of failing.
// The first line with any non-whitespace content is the header row, even
// when it holds nothing but separators.
func Tokenize(text string) Table {
	var records [][]string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, splitLine(line))
	}
	if len(records) == 0 {
		return Table{}
	}
	return tableWithHeader(records[0], records[1:])
}

func splitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// newTable takes the first non-blank record as the header row. Spreadsheet
// readers use it; a row of empty cells there has no content at all.
func newTable(records [][]string) Table {
	for i, rec := range records {
		if !blank(rec) {
			return tableWithHeader(rec, records[i+1:])
		}
	}
	return Table{}
}

// tableWithHeader pads short rows with "" and truncates long rows to the
// header width. Blank data rows are dropped.
func tableWithHeader(header []string, records [][]string) Table {
	t := Table{Headers: header}
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
