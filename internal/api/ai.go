package api

import (
	"net/http"

	"github.com/dharsanguruparan/SheetDrop/internal/api/response"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var in service.ChatInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	reply, err := s.ai.Chat(r.Context(), auth.PrincipalFrom(r.Context()), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, reply)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var in service.InsightsInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	reply, err := s.ai.Insights(r.Context(), auth.PrincipalFrom(r.Context()), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, reply)
}
