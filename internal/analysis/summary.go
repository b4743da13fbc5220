package analysis

import (
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

// Summarize derives the dataset summary from the grid and column types.
// Boolean columns are reported under TextColumns. Empty cells are counted
// over the whole grid, header row included.
func Summarize(grid [][]model.Cell, headers []string, rowCount, columnCount int, types map[int]model.ColumnType) model.Summary {
	s := model.Summary{
		NumericColumns: []string{},
		TextColumns:    []string{},
		DateColumns:    []string{},
		TotalCells:     rowCount * columnCount,
	}
	for col := 0; col < columnCount && col < len(headers); col++ {
		name := headers[col]
		switch types[col] {
		case model.TypeNumber:
			s.NumericColumns = append(s.NumericColumns, name)
		case model.TypeDate:
			s.DateColumns = append(s.DateColumns, name)
		default:
			s.TextColumns = append(s.TextColumns, name)
		}
	}
	for _, row := range grid {
		for _, cell := range row {
			if cell.IsEmpty() {
				s.EmptyCells++
			}
		}
	}
	return s
}

// Analyze recomputes column types and summary on ds in place and returns the
// elapsed time.
func Analyze(ds *model.Dataset) time.Duration {
	start := time.Now()
	types := InferColumnTypes(ds.Grid, ds.ColumnCount)
	for i := range ds.Columns {
		ds.Columns[i].Index = i
		ds.Columns[i].Type = types[i]
	}
	ds.Summary = Summarize(ds.Grid, ds.Headers(), ds.RowCount, ds.ColumnCount, types)
	return time.Since(start)
}
