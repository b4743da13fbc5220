package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/SheetDrop/internal/api/response"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.admin.ListUsers(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": users})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.admin.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": u})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	u, err := s.admin.CreateUser(r.Context(), auth.PrincipalFrom(r.Context()), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, map[string]any{"success": true, "message": "User created", "user": u})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	u, err := s.admin.UpdateUser(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "message": "User updated", "user": u})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.DeleteUser(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Message(w, "User deleted")
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	list, err := s.admin.Activity(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": list})
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var in service.ActivityInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	e, err := s.admin.CreateActivity(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, map[string]any{"success": true, "data": e})
}

func (s *Server) handleListData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.admin.ListData(r.Context(), service.DataQuery{
		Page:      queryInt(r, "page"),
		Limit:     queryInt(r, "limit"),
		Search:    q.Get("search"),
		User:      q.Get("user"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": page.Data, "pagination": page.Pagination})
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	ds, err := s.admin.GetData(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": ds})
}

func (s *Server) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	var in service.DataUpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	ds, err := s.admin.UpdateData(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "message": "Data updated successfully", "data": service.View(ds)})
}

func (s *Server) handleDeleteData(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.DeleteData(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Message(w, "Data deleted successfully")
}

func (s *Server) handleReprocessData(w http.ResponseWriter, r *http.Request) {
	ds, err := s.admin.Reprocess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "message": "Reprocessing started", "data": service.View(ds)})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.admin.Analytics(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": a})
}
