// Package sheet parses stored CSV and XLSX files into a cell grid whose first
// row holds the headers.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

var (
	// ErrUnsupported is returned for formats that cannot be parsed here.
	ErrUnsupported = errors.New("unsupported spreadsheet format")
	// ErrEmpty is returned when no header row was found.
	ErrEmpty = errors.New("spreadsheet is empty")
)

// Result is a parsed sheet.
type Result struct {
	SheetName string
	Grid      [][]model.Cell
}

// Parse picks the parser from the file extension.
func Parse(r io.Reader, filename string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(filename))
	}
}

// ParseCSV reads comma separated data. Rows may have differing lengths.
func ParseCSV(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	grid, err := buildGrid(rows)
	if err != nil {
		return nil, err
	}
	return &Result{SheetName: model.DefaultSheetName, Grid: grid}, nil
}

// ParseXLSX reads the first worksheet.
func ParseXLSX(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	name := sheets[0]
	iter, err := f.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("open rows of sheet %s: %w", name, err)
	}
	defer iter.Close()

	var rows [][]string
	for iter.Next() {
		cols, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row in sheet %s: %w", name, err)
		}
		rows = append(rows, cols)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate sheet %s: %w", name, err)
	}
	grid, err := buildGrid(rows)
	if err != nil {
		return nil, err
	}
	return &Result{SheetName: name, Grid: grid}, nil
}

// buildGrid skips leading and trailing blank rows, takes the first row as
// headers and pads or truncates data rows to the header width. Blank headers
// become ColumnN and repeated ones get a numeric suffix.
func buildGrid(rows [][]string) ([][]model.Cell, error) {
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	header := rows[0]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	width := len(header)
	if width == 0 {
		return nil, ErrEmpty
	}

	grid := make([][]model.Cell, 0, len(rows))
	head := make([]model.Cell, width)
	used := make(map[string]bool, width)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Column" + strconv.Itoa(i+1)
		}
		head[i] = model.Text(uniqueName(h, used))
	}
	grid = append(grid, head)

	for _, rec := range rows[1:] {
		row := make([]model.Cell, width)
		for i := 0; i < width; i++ {
			if i < len(rec) {
				row[i] = coerce(rec[i])
			}
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// uniqueName suffixes repeated header names: Score, Score_2, Score_3.
func uniqueName(name string, used map[string]bool) string {
	out := name
	for n := 2; used[out]; n++ {
		out = name + "_" + strconv.Itoa(n)
	}
	used[out] = true
	return out
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// coerce turns numeric text into number cells and empty text into null.
func coerce(v string) model.Cell {
	s := strings.TrimSpace(v)
	if s == "" {
		return model.Null()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return model.Number(f)
	}
	return model.Text(v)
}
