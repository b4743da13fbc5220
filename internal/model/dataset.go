// Package model contains the struct definitions shared across packages.
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ProcessingStatus describes the analysis lifecycle of a dataset.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	TypeBoolean ColumnType = "boolean"
	TypeNumber  ColumnType = "number"
	TypeDate    ColumnType = "date"
	TypeText    ColumnType = "text"
)

const (
	// DefaultSheetName labels datasets whose sheet was not named.
	DefaultSheetName = "Sheet1"
	// MaxDescriptionLength bounds Dataset.Description in characters.
	MaxDescriptionLength = 1000
	// previewRows is the header row plus five data rows.
	previewRows = 6
)

// ErrInvalidContent is wrapped by every grid validation failure.
var ErrInvalidContent = errors.New("invalid dataset content")

// Column ties a header to its position and inferred type.
type Column struct {
	Name  string     `json:"name"`
	Index int        `json:"index"`
	Type  ColumnType `json:"type"`
}

// Summary is derived from the grid and the inferred column types. It is
// always recomputed as a whole.
type Summary struct {
	NumericColumns []string `json:"numericColumns"`
	TextColumns    []string `json:"textColumns"`
	DateColumns    []string `json:"dateColumns"`
	EmptyCells     int      `json:"emptyCells"`
	TotalCells     int      `json:"totalCells"`
}

// Dataset is one uploaded spreadsheet plus its derived metadata.
type Dataset struct {
	ID               string           `json:"id"`
	OwnerID          string           `json:"user"`
	StorageName      string           `json:"filename"`
	OriginalName     string           `json:"originalName"`
	MimeType         string           `json:"mimeType"`
	ByteSize         int64            `json:"fileSize"`
	StoragePath      string           `json:"-"`
	SheetName        string           `json:"sheetName"`
	Columns          []Column         `json:"columns"`
	Grid             [][]Cell         `json:"data,omitempty"`
	RowCount         int              `json:"rowCount"`
	ColumnCount      int              `json:"columnCount"`
	Summary          Summary          `json:"summary"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	ProcessingError  string           `json:"processingError,omitempty"`
	ProcessingTime   int64            `json:"processingTime,omitempty"`
	IsPublic         bool             `json:"isPublic"`
	Tags             []string         `json:"tags"`
	Description      string           `json:"description,omitempty"`
	ChartConfig      json.RawMessage  `json:"chartConfig,omitempty"`
	Version          int64            `json:"version"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Headers returns the column names in order.
func (d *Dataset) Headers() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// ColumnTypes maps column index to inferred type.
func (d *Dataset) ColumnTypes() map[int]ColumnType {
	out := make(map[int]ColumnType, len(d.Columns))
	for _, c := range d.Columns {
		out[c.Index] = c.Type
	}
	return out
}

// SetContent replaces headers and grid. Row 0 of the stored grid always
// mirrors the headers: when headers is empty the trimmed first grid row
// supplies them and replaces row 0, otherwise the headers are prepended unless row 0 already equals them.
// Column types and summary are reset and must be recomputed by the caller.
func (d *Dataset) SetContent(headers []string, grid [][]Cell) error {
	if len(headers) == 0 {
		if len(grid) == 0 {
			return fmt.Errorf("%w: grid is empty", ErrInvalidContent)
		}
		headers = make([]string, len(grid[0]))
		for i, c := range grid[0] {
			headers[i] = strings.TrimSpace(c.String())
		}
		grid = append([][]Cell{Row(headers...)}, grid[1:]...)
	} else if len(grid) == 0 || !rowMatches(grid[0], headers) {
		grid = append([][]Cell{Row(headers...)}, grid...)
	}
	if len(headers) == 0 {
		return fmt.Errorf("%w: at least one column is required", ErrInvalidContent)
	}
	seen := make(map[string]struct{}, len(headers))
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("%w: header %d is blank", ErrInvalidContent, i)
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("%w: duplicate header %q", ErrInvalidContent, h)
		}
		seen[h] = struct{}{}
	}
	for r, row := range grid {
		if len(row) != len(headers) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidContent, r, len(row), len(headers))
		}
	}
	cols := make([]Column, len(headers))
	for i, h := range headers {
		cols[i] = Column{Name: h, Index: i, Type: TypeText}
	}
	d.Columns = cols
	d.Grid = grid
	d.RowCount = len(grid)
	d.ColumnCount = len(headers)
	d.Summary = Summary{}
	return nil
}

func rowMatches(row []Cell, headers []string) bool {
	if len(row) != len(headers) {
		return false
	}
	for i, c := range row {
		if c.Kind != CellText || c.Text != headers[i] {
			return false
		}
	}
	return true
}

// HasContent reports whether a grid has been attached.
func (d *Dataset) HasContent() bool {
	return d.ColumnCount > 0 && len(d.Grid) > 0
}

// Preview returns the header row and up to five data rows.
func (d *Dataset) Preview() [][]Cell {
	n := len(d.Grid)
	if n > previewRows {
		n = previewRows
	}
	return d.Grid[:n]
}

// WithoutGrid returns a shallow copy with the grid dropped, used by listings.
func (d Dataset) WithoutGrid() Dataset {
	d.Grid = nil
	return d
}

// FileSizeFormatted renders ByteSize as e.g. "1.5 MB".
func (d *Dataset) FileSizeFormatted() string {
	return FormatBytes(d.ByteSize)
}

// FormatBytes renders a byte count with binary units.
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizes)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizes[i]
}

// NormalizeTags trims, lowercases and de-duplicates tags, dropping blanks.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Clone returns a deep copy, grid rows included.
func (d *Dataset) Clone() *Dataset {
	c := *d
	if d.Columns != nil {
		c.Columns = append([]Column(nil), d.Columns...)
	}
	if d.Grid != nil {
		c.Grid = make([][]Cell, len(d.Grid))
		for i, row := range d.Grid {
			c.Grid[i] = append([]Cell(nil), row...)
		}
	}
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	if d.ChartConfig != nil {
		c.ChartConfig = append(json.RawMessage(nil), d.ChartConfig...)
	}
	c.Summary.NumericColumns = cloneStrings(d.Summary.NumericColumns)
	c.Summary.TextColumns = cloneStrings(d.Summary.TextColumns)
	c.Summary.DateColumns = cloneStrings(d.Summary.DateColumns)
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
