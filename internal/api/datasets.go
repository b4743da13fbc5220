package api

import (
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/SheetDrop/internal/api/response"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.datasets.List(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "count": len(list), "data": service.Views(list)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.datasets.Stats(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": stats})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.datasets.Get(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "data": service.DetailView(ds)})
}

func (s *Server) handleUpdateMeta(w http.ResponseWriter, r *http.Request) {
	var in service.MetaInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	ds, err := s.datasets.UpdateMeta(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "message": "Data updated", "data": service.View(ds)})
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var in service.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, r, err)
		return
	}
	ds, err := s.datasets.UpdateContent(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "message": "Data updated", "data": service.View(ds)})
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.datasets.Delete(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Message(w, "File deleted")
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	signed, err := s.datasets.SignedDownloadURL(r.Context(), auth.PrincipalFrom(r.Context()),
		chi.URLParam(r, "id"), baseURL(r)+"/api/files/download")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "url": signed.URL, "expiresAt": signed.Expires})
}

// handleSignedDownload streams the original file for a valid signed link.
// Local files are served with ServeContent so range requests work.
func (s *Server) handleSignedDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ds, rc, err := s.datasets.OpenSigned(r.Context(), q.Get("file"), q.Get("expires"), q.Get("signature"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": ds.OriginalName}))
	w.Header().Set("Content-Type", ds.MimeType)
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, ds.OriginalName, ds.UpdatedAt, rs)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("dataset_id", ds.ID).Msg("stream download")
	}
}

func (s *Server) handlePublicDatasets(w http.ResponseWriter, r *http.Request) {
	list, total, err := s.datasets.ListPublic(r.Context(), auth.PrincipalFrom(r.Context()),
		queryInt(r, "limit"), queryInt(r, "skip"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]any{"success": true, "total": total, "data": list})
}
