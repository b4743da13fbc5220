package analysis

import (
	"reflect"
	"testing"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

func newDataset(t *testing.T, grid [][]model.Cell) *model.Dataset {
	t.Helper()
	ds := &model.Dataset{}
	if err := ds.SetContent(nil, grid); err != nil {
		t.Fatalf("SetContent() error = %v", err)
	}
	return ds
}

func TestAnalyze_NumericScenario(t *testing.T) {
	ds := newDataset(t, [][]model.Cell{
		model.Row("Name", "Age"),
		model.Row("Alice", "30"),
		model.Row("Bob", "25"),
	})
	Analyze(ds)

	if ds.Columns[1].Type != model.TypeNumber {
		t.Errorf("Age type = %q, want number", ds.Columns[1].Type)
	}
	if !reflect.DeepEqual(ds.Summary.NumericColumns, []string{"Age"}) {
		t.Errorf("NumericColumns = %v, want [Age]", ds.Summary.NumericColumns)
	}
	if !reflect.DeepEqual(ds.Summary.TextColumns, []string{"Name"}) {
		t.Errorf("TextColumns = %v, want [Name]", ds.Summary.TextColumns)
	}
	if ds.Summary.EmptyCells != 0 {
		t.Errorf("EmptyCells = %d, want 0", ds.Summary.EmptyCells)
	}
	if ds.Summary.TotalCells != 6 {
		t.Errorf("TotalCells = %d, want 6", ds.Summary.TotalCells)
	}
}

func TestSummarize_BucketsAndEmptyCells(t *testing.T) {
	ds := newDataset(t, [][]model.Cell{
		model.Row("Name", "Score", "Joined", "Member"),
		{model.Text("Ann"), model.Number(9), model.Text("2024-01-02"), model.Text("true")},
		{model.Null(), model.Text(""), model.Text("2024-03-04"), model.Bool(false)},
	})
	Analyze(ds)

	s := ds.Summary
	if !reflect.DeepEqual(s.NumericColumns, []string{"Score"}) {
		t.Errorf("NumericColumns = %v", s.NumericColumns)
	}
	if !reflect.DeepEqual(s.DateColumns, []string{"Joined"}) {
		t.Errorf("DateColumns = %v", s.DateColumns)
	}
	// boolean columns are reported as text
	if !reflect.DeepEqual(s.TextColumns, []string{"Name", "Member"}) {
		t.Errorf("TextColumns = %v", s.TextColumns)
	}
	if s.EmptyCells != 2 {
		t.Errorf("EmptyCells = %d, want 2", s.EmptyCells)
	}
	if s.TotalCells != ds.RowCount*ds.ColumnCount {
		t.Errorf("TotalCells = %d, want %d", s.TotalCells, ds.RowCount*ds.ColumnCount)
	}

	seen := map[string]int{}
	for _, bucket := range [][]string{s.NumericColumns, s.TextColumns, s.DateColumns} {
		for _, name := range bucket {
			seen[name]++
		}
	}
	for _, h := range ds.Headers() {
		if seen[h] != 1 {
			t.Errorf("header %q appears in %d buckets, want 1", h, seen[h])
		}
	}
	if len(ds.ColumnTypes()) != ds.ColumnCount {
		t.Errorf("ColumnTypes() has %d entries, want %d", len(ds.ColumnTypes()), ds.ColumnCount)
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	ds := newDataset(t, [][]model.Cell{
		model.Row("a", "b"),
		{model.Number(1), model.Null()},
		{model.Text("x"), model.Text("2020-01-01")},
	})
	Analyze(ds)
	first := ds.Summary
	Analyze(ds)
	if !reflect.DeepEqual(first, ds.Summary) {
		t.Errorf("summary changed between runs: %+v vs %+v", first, ds.Summary)
	}
}

func TestSummarize_ReplacesPreviousSummary(t *testing.T) {
	ds := newDataset(t, [][]model.Cell{model.Row("a"), model.Row("1")})
	Analyze(ds)
	if err := ds.SetContent(nil, [][]model.Cell{model.Row("b"), model.Row("word")}); err != nil {
		t.Fatal(err)
	}
	Analyze(ds)
	if len(ds.Summary.NumericColumns) != 0 {
		t.Errorf("stale numeric columns kept: %v", ds.Summary.NumericColumns)
	}
	if !reflect.DeepEqual(ds.Summary.TextColumns, []string{"b"}) {
		t.Errorf("TextColumns = %v, want [b]", ds.Summary.TextColumns)
	}
}
