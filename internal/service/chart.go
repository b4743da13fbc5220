package service

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

// chartRows is the number of data rows returned for chart rendering.
const chartRows = 10

// ChartTemplate is a chart kind offered by the frontend.
type ChartTemplate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var chartTemplates = []ChartTemplate{
	{ID: "line", Name: "Line Chart"},
	{ID: "bar", Name: "Bar Chart"},
	{ID: "pie", Name: "Pie Chart"},
	{ID: "scatter", Name: "Scatter Plot"},
	{ID: "candlestick", Name: "Candlestick Chart"},
	{ID: "3d-bar", Name: "3D Bar Chart"},
	{ID: "3d-scatter", Name: "3D Scatter Plot"},
}

// ChartData is what a chart is drawn from.
type ChartData struct {
	Headers []string       `json:"headers"`
	Columns []model.Column `json:"columns"`
	Rows    [][]model.Cell `json:"rows"`
}

// SaveChartInput stores a chart configuration on a dataset.
type SaveChartInput struct {
	FileID  string          `json:"fileId" validate:"required"`
	Config  json.RawMessage `json:"config"`
	Version *int64          `json:"version"`
}

// ChartService serves chart data for datasets the principal may read.
type ChartService struct {
	datasets *DatasetService
	activity *ActivityLog
}

func NewChartService(datasets *DatasetService, activity *ActivityLog) *ChartService {
	return &ChartService{datasets: datasets, activity: activity}
}

// Generate returns the headers and the first ten data rows.
func (s *ChartService) Generate(ctx context.Context, p *model.User, id string) (*ChartData, error) {
	ds, err := s.datasets.authorized(ctx, p, id, "Data file not found", "Not authorized")
	if err != nil {
		return nil, err
	}
	rows := [][]model.Cell{}
	if len(ds.Grid) > 1 {
		end := len(ds.Grid)
		if end > chartRows+1 {
			end = chartRows + 1
		}
		rows = ds.Grid[1:end]
	}
	s.activity.Record(ctx, p.ID, model.ActionViewedChart, "Viewed chart for "+ds.OriginalName)
	return &ChartData{Headers: ds.Headers(), Columns: ds.Columns, Rows: rows}, nil
}

// Columns returns the dataset columns with their inferred types.
func (s *ChartService) Columns(ctx context.Context, p *model.User, id string) ([]model.Column, error) {
	ds, err := s.datasets.authorized(ctx, p, id, "Data file not found", "Not authorized")
	if err != nil {
		return nil, err
	}
	if ds.Columns == nil {
		return []model.Column{}, nil
	}
	return ds.Columns, nil
}

// Templates lists the supported chart kinds.
func (s *ChartService) Templates() []ChartTemplate {
	return append([]ChartTemplate(nil), chartTemplates...)
}

// Save stores the chart configuration on the dataset.
func (s *ChartService) Save(ctx context.Context, p *model.User, in SaveChartInput) (*model.Dataset, error) {
	if in.FileID == "" {
		return nil, apperr.Invalid("Validation failed", apperr.FieldError{Field: "fileId", Message: "fileId is required"})
	}
	if len(in.Config) == 0 || string(in.Config) == "null" {
		return nil, apperr.Invalid("Validation failed", apperr.FieldError{Field: "config", Message: "config is required"})
	}
	if !json.Valid(in.Config) {
		return nil, apperr.Invalid("Validation failed", apperr.FieldError{Field: "config", Message: "config must be valid JSON"})
	}
	ds, err := s.datasets.authorized(ctx, p, in.FileID, "Data file not found", "Not authorized")
	if err != nil {
		return nil, err
	}
	ds, err = s.datasets.Apply(ctx, ds, Edit{ChartConfig: in.Config, Version: in.Version})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, p.ID, model.ActionExportedChart, "Saved chart configuration for "+ds.OriginalName)
	return ds, nil
}
