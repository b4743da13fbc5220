package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/SheetDrop/internal/api/response"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
)

func (s *Server) handleChartTemplates(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{"success": true, "data": s.charts.Templates()})
}

func (s *Server) handleGenerateChart(w http.ResponseWriter, r *http.Request) {
	data, err := s.charts.Generate(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "fileId"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": data})
}

func (s *Server) handleChartColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.charts.Columns(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "fileId"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": cols})
}

// handleSaveChart is owner-gated inside the service since the dataset id
// arrives in the body.
func (s *Server) handleSaveChart(w http.ResponseWriter, r *http.Request) {
	var in service.SaveChartInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	ds, err := s.charts.Save(r.Context(), auth.PrincipalFrom(r.Context()), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{
		"success": true,
		"message": "Chart configuration saved",
		"data":    map[string]any{"id": ds.ID, "version": ds.Version, "chartConfig": ds.ChartConfig},
	})
}
