package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// CellKind discriminates the value held by a Cell.
type CellKind uint8

const (
	CellNull CellKind = iota
	CellText
	CellNumber
	CellBool
)

func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	case CellBool:
		return "bool"
	default:
		return "null"
	}
}

// Cell is one spreadsheet value. Only the field matching Kind is meaningful.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Bool   bool
}

// Null returns an empty cell.
func Null() Cell { return Cell{} }

// Text wraps a string value.
func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

// Number wraps a numeric value.
func Number(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// Bool wraps a boolean value.
func Bool(b bool) Cell { return Cell{Kind: CellBool, Bool: b} }

// Row builds a row of text cells, handy for headers and tests.
func Row(values ...string) []Cell {
	out := make([]Cell, len(values))
	for i, v := range values {
		out[i] = Text(v)
	}
	return out
}

// IsEmpty reports whether the cell is null or an empty string.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case CellNull:
		return true
	case CellText:
		return c.Text == ""
	default:
		return false
	}
}

// String returns the textual form of the cell as a spreadsheet would show it.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellBool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

// MarshalJSON encodes the cell as a native JSON scalar.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellText:
		return json.Marshal(c.Text)
	case CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(c.Number)
	case CellBool:
		return json.Marshal(c.Bool)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, strings, numbers and booleans.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*c = Null()
	case string:
		*c = Text(v)
	case float64:
		*c = Number(v)
	case bool:
		*c = Bool(v)
	default:
		return fmt.Errorf("unsupported cell value %s", strings.TrimSpace(string(data)))
	}
	return nil
}
