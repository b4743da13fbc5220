package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/dharsanguruparan/SheetDrop/internal/api/response"
	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
)

const (
	uploadField = "file"
	sniffLen    = 512
	// multipartSlack covers boundaries and part headers on top of the file.
	multipartSlack = 1 << 20
)

var errNoFile = errors.New("no file part")

// handleUpload streams the "file" part into a temp file so the size limit is
// enforced without buffering the upload in memory, then hands it to the
// dataset service. ?parse=true asks for server-side parsing.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Upload.MaxFileBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		response.Error(w, r, apperr.Invalid("No file uploaded"))
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		if errors.Is(err, errNoFile) {
			response.Error(w, r, apperr.Invalid("No file uploaded"))
			return
		}
		response.Error(w, r, apperr.Wrap(apperr.InvalidInput, "Malformed upload", err))
		return
	}
	defer part.Close()

	tmp, err := persistTemp(part, limit)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	defer tmp.cleanup()

	parse, _ := strconv.ParseBool(r.URL.Query().Get("parse"))
	ds, err := s.datasets.Upload(r.Context(), auth.PrincipalFrom(r.Context()), &service.UploadInput{
		Filename:    tmp.filename,
		ContentType: tmp.contentType,
		Size:        tmp.size,
		Body:        tmp.f,
		Parse:       parse,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, map[string]any{
		"success": true,
		"message": "File uploaded",
		"data":    service.View(ds),
	})
}

// nextFilePart skips form fields until the file part. A form without one
// yields errNoFile.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errNoFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == uploadField && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

type tempUpload struct {
	f           *os.File
	size        int64
	contentType string
	filename    string
}

func (t *tempUpload) cleanup() {
	name := t.f.Name()
	t.f.Close()
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Str("path", name).Msg("remove temp upload")
	}
}

func persistTemp(part *multipart.Part, limit int64) (*tempUpload, error) {
	tmpFile, err := os.CreateTemp("", "sheetdrop-*")
	if err != nil {
		return nil, apperr.Internalf("Failed to store file", fmt.Errorf("create temp file: %w", err))
	}
	fail := func(e error) (*tempUpload, error) {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, e
	}

	var sniff []byte
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if limit > 0 && written > limit {
				return fail(apperr.Invalid(fmt.Sprintf("File exceeds limit (%s)", model.FormatBytes(limit))))
			}
			if len(sniff) < sniffLen {
				chunk := min(n, sniffLen-len(sniff))
				sniff = append(sniff, buf[:chunk]...)
			}
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				return fail(apperr.Internalf("Failed to store file", fmt.Errorf("write temp file: %w", err)))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			var maxErr *http.MaxBytesError
			if errors.As(readErr, &maxErr) {
				return fail(apperr.Invalid(fmt.Sprintf("File exceeds limit (%s)", model.FormatBytes(limit))))
			}
			return fail(apperr.Wrap(apperr.InvalidInput, "Malformed upload", readErr))
		}
	}
	if written == 0 {
		return fail(apperr.Invalid("Uploaded file is empty"))
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return fail(apperr.Internalf("Failed to store file", fmt.Errorf("rewind temp file: %w", err)))
	}

	contentType := part.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(sniff)
	}
	return &tempUpload{
		f:           tmpFile,
		size:        written,
		contentType: contentType,
		filename:    part.FileName(),
	}, nil
}
