// Package analysis classifies spreadsheet columns and derives dataset
// summaries. Everything here is pure and never fails.
package analysis

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

// dateLayouts are tried in order when sniffing date-like cells.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006-01",
	"2006.01.02",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 03:04 PM",
	"01/02/2006 03:04:05 PM",
	"01-02-2006",
	"Jan 2, 2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Monday, January 2, 2006",
	"Mon, January 2, 2006",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
}

// InferColumnTypes classifies each of the first columnCount columns of grid.
// Row 0 is the header row and is skipped.
//
// Per column: booleans win only when nothing numeric or date-like was seen;
// numbers win unless a date was also seen; dates win unless a number was also
// seen. A non-empty cell that is none of these forces text, as does a
// number/date mix.
func InferColumnTypes(grid [][]model.Cell, columnCount int) map[int]model.ColumnType {
	types := make(map[int]model.ColumnType, columnCount)
	for col := 0; col < columnCount; col++ {
		types[col] = classify(grid, col)
	}
	return types
}

func classify(grid [][]model.Cell, col int) model.ColumnType {
	var hasNumbers, hasDates, hasBooleans, hasText bool
	for row := 1; row < len(grid); row++ {
		if col >= len(grid[row]) {
			continue
		}
		cell := grid[row][col]
		if cell.IsEmpty() {
			continue
		}
		s := strings.TrimSpace(cell.String())
		if s == "" {
			continue
		}
		switch {
		case isBoolean(s):
			hasBooleans = true
		case isNumber(s):
			hasNumbers = true
		case isDate(s):
			hasDates = true
		default:
			hasText = true
		}
	}
	switch {
	case hasText:
		return model.TypeText
	case hasBooleans && !hasNumbers && !hasDates:
		return model.TypeBoolean
	case hasNumbers && !hasDates:
		return model.TypeNumber
	case hasDates && !hasNumbers:
		return model.TypeDate
	default:
		return model.TypeText
	}
}

func isBoolean(s string) bool {
	l := strings.ToLower(s)
	return l == "true" || l == "false"
}

func isNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
