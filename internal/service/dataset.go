package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dharsanguruparan/SheetDrop/internal/analysis"
	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/config"
	"github.com/dharsanguruparan/SheetDrop/internal/filestore"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/queue"
	"github.com/dharsanguruparan/SheetDrop/internal/sheet"
	"github.com/dharsanguruparan/SheetDrop/internal/signing"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

var datasetsAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sheetdrop_datasets_analyzed_total",
	Help: "Datasets run through type inference, by outcome.",
}, []string{"status"})

const (
	defaultPublicLimit = 10
	maxPublicLimit     = 100
)

// Presigner is implemented by file backends that can hand out direct links.
type Presigner interface {
	PresignURL(ctx context.Context, name, downloadName string, ttl time.Duration) (string, error)
}

// DatasetDeps are the collaborators of DatasetService.
type DatasetDeps struct {
	Datasets     storage.DatasetStore
	Files        filestore.Files
	Activity     *ActivityLog
	Signer       *signing.Signer
	Upload       config.UploadConfig
	SignedURLTTL time.Duration
}

// DatasetService owns uploads, content edits, analysis and deletion.
type DatasetService struct {
	datasets   storage.DatasetStore
	files      filestore.Files
	activity   *ActivityLog
	signer     *signing.Signer
	upload     config.UploadConfig
	signedTTL  time.Duration
	dispatcher queue.Dispatcher
	now        func() time.Time
}

func NewDatasetService(d DatasetDeps) *DatasetService {
	ttl := d.SignedURLTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DatasetService{
		datasets:  d.Datasets,
		files:     d.Files,
		activity:  d.Activity,
		signer:    d.Signer,
		upload:    d.Upload,
		signedTTL: ttl,
		now:       time.Now,
	}
}

// SetDispatcher installs the background analysis dispatcher. Without one,
// server-side parsing runs inline.
func (s *DatasetService) SetDispatcher(d queue.Dispatcher) {
	s.dispatcher = d
}

// DatasetView is the API representation of a dataset.
type DatasetView struct {
	*model.Dataset
	FileSizeFormatted string         `json:"fileSizeFormatted"`
	Owned             *bool          `json:"owned,omitempty"`
	Preview           [][]model.Cell `json:"preview,omitempty"`
}

// View wraps d for responses.
func View(d *model.Dataset) DatasetView {
	return DatasetView{Dataset: d, FileSizeFormatted: d.FileSizeFormatted()}
}

// DetailView is View plus the header and first data rows, for single-record
// responses.
func DetailView(d *model.Dataset) DatasetView {
	v := View(d)
	if d.HasContent() {
		v.Preview = d.Preview()
	}
	return v
}

// Views wraps a listing.
func Views(ds []model.Dataset) []DatasetView {
	out := make([]DatasetView, len(ds))
	for i := range ds {
		out[i] = View(&ds[i])
	}
	return out
}

// UploadInput is one received file. Body is read once.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	// Parse requests server-side parsing and analysis of the stored file.
	Parse bool
}

// Upload stores the file and creates a pending dataset shell owned by p.
func (s *DatasetService) Upload(ctx context.Context, p *model.User, in *UploadInput) (*model.Dataset, error) {
	if p == nil {
		return nil, apperr.Unauthorized("Not authorized, no token")
	}
	if in == nil || in.Body == nil || in.Filename == "" {
		return nil, apperr.Invalid("No file uploaded")
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if !s.extensionAllowed(ext) {
		return nil, apperr.Invalid(fmt.Sprintf("File type %s is not allowed, expected one of %s",
			extOrNone(ext), strings.Join(s.upload.AllowedExtensions, ", ")))
	}
	if s.upload.MaxFileBytes > 0 && in.Size > s.upload.MaxFileBytes {
		return nil, apperr.Invalid(fmt.Sprintf("File exceeds limit (%s)", model.FormatBytes(s.upload.MaxFileBytes)))
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	name := filestore.GenerateName(in.Filename, s.now())
	if err := s.files.Save(ctx, name, in.Body, in.Size, contentType); err != nil {
		return nil, apperr.Internalf("Failed to store file", err)
	}
	ds := &model.Dataset{
		ID:               uuid.NewString(),
		OwnerID:          p.ID,
		StorageName:      name,
		OriginalName:     filestore.Sanitize(in.Filename),
		MimeType:         contentType,
		ByteSize:         in.Size,
		StoragePath:      name,
		SheetName:        model.DefaultSheetName,
		ProcessingStatus: model.StatusPending,
		Tags:             []string{},
	}
	if err := s.datasets.Create(ctx, ds); err != nil {
		if rmErr := s.files.Remove(ctx, name); rmErr != nil {
			logging.Ctx(ctx).Warn().Err(rmErr).Str("file", name).Msg("remove orphaned upload failed")
		}
		return nil, storeErr(err, "File not found")
	}
	logging.Ctx(ctx).Info().
		Str("dataset_id", ds.ID).
		Str("user_id", p.ID).
		Int64("bytes", ds.ByteSize).
		Msg("file uploaded")
	s.activity.Record(ctx, p.ID, model.ActionUploadedFile, "Uploaded file "+ds.OriginalName)

	if in.Parse {
		if err := s.schedule(ctx, ds.ID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("dataset_id", ds.ID).Msg("schedule analysis failed")
		}
		if fresh, err := s.datasets.Get(ctx, ds.ID); err == nil {
			ds = fresh
		}
	}
	return ds, nil
}

func (s *DatasetService) extensionAllowed(ext string) bool {
	if len(s.upload.AllowedExtensions) == 0 {
		return true
	}
	for _, a := range s.upload.AllowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}

func extOrNone(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}

// schedule dispatches background analysis, or runs it inline when no
// dispatcher is configured.
func (s *DatasetService) schedule(ctx context.Context, id string) error {
	if s.dispatcher != nil {
		return s.dispatcher.Dispatch(ctx, id)
	}
	return s.Process(ctx, id)
}

// Owner returns the owner id of a dataset for ownership gates.
func (s *DatasetService) Owner(ctx context.Context, id string) (string, error) {
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return "", storeErr(err, "File not found")
	}
	return ds.OwnerID, nil
}

// authorized loads a dataset and checks p may act on it.
func (s *DatasetService) authorized(ctx context.Context, p *model.User, id, missing, denied string) (*model.Dataset, error) {
	if p == nil {
		return nil, apperr.Unauthorized("Not authorized, no token")
	}
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, missing)
	}
	if !auth.CanAccess(p, ds.OwnerID) {
		return nil, apperr.Denied(denied)
	}
	return ds, nil
}

// Get returns one dataset with its grid.
func (s *DatasetService) Get(ctx context.Context, p *model.User, id string) (*model.Dataset, error) {
	return s.authorized(ctx, p, id, "File not found", "Not authorized")
}

// List returns the principal's datasets, newest first, without grids.
func (s *DatasetService) List(ctx context.Context, p *model.User) ([]model.Dataset, error) {
	if p == nil {
		return nil, apperr.Unauthorized("Not authorized, no token")
	}
	out, _, err := s.datasets.List(ctx, storage.DatasetQuery{OwnerID: p.ID, SortBy: storage.SortCreatedAt})
	if err != nil {
		return nil, storeErr(err, "File not found")
	}
	return out, nil
}

// Stats counts the principal's files and bytes.
func (s *DatasetService) Stats(ctx context.Context, p *model.User) (storage.DatasetStats, error) {
	if p == nil {
		return storage.DatasetStats{}, apperr.Unauthorized("Not authorized, no token")
	}
	st, err := s.datasets.Stats(ctx, storage.DatasetQuery{OwnerID: p.ID})
	if err != nil {
		return storage.DatasetStats{}, storeErr(err, "File not found")
	}
	return st, nil
}

// ListPublic pages through public datasets. viewer may be nil; when present
// each entry is marked with whether the viewer owns it.
func (s *DatasetService) ListPublic(ctx context.Context, viewer *model.User, limit, skip int) ([]DatasetView, int, error) {
	if limit <= 0 {
		limit = defaultPublicLimit
	}
	if limit > maxPublicLimit {
		limit = maxPublicLimit
	}
	if skip < 0 {
		skip = 0
	}
	list, total, err := s.datasets.List(ctx, storage.DatasetQuery{
		PublicOnly: true,
		SortBy:     storage.SortCreatedAt,
		Limit:      limit,
		Offset:     skip,
	})
	if err != nil {
		return nil, 0, storeErr(err, "File not found")
	}
	views := Views(list)
	if viewer != nil {
		for i := range views {
			owned := views[i].OwnerID == viewer.ID
			views[i].Owned = &owned
		}
	}
	return views, total, nil
}

// ContentInput replaces a dataset grid.
type ContentInput struct {
	Headers   []string       `json:"headers"`
	Data      [][]model.Cell `json:"data"`
	SheetName string         `json:"sheetName"`
	Version   *int64         `json:"version"`
}

// MetaInput changes descriptive fields. Nil fields are left untouched.
type MetaInput struct {
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
	IsPublic    *bool    `json:"isPublic"`
	Version     *int64   `json:"version"`
}

// Edit is a combined change applied in Apply. Nil or empty fields are left
// untouched.
type Edit struct {
	Headers     []string
	Grid        [][]model.Cell
	SheetName   string
	Description *string
	Tags        []string
	IsPublic    *bool
	ChartConfig json.RawMessage
	Version     *int64
}

func (e Edit) hasContent() bool {
	return e.Grid != nil || e.Headers != nil
}

// UpdateContent replaces the grid and recomputes column types and summary.
func (s *DatasetService) UpdateContent(ctx context.Context, p *model.User, id string, in ContentInput) (*model.Dataset, error) {
	ds, err := s.authorized(ctx, p, id, "File not found", "Not authorized")
	if err != nil {
		return nil, err
	}
	if in.Data == nil && in.Headers == nil {
		return nil, apperr.Invalid("Data is required")
	}
	ds, err = s.Apply(ctx, ds, Edit{Headers: in.Headers, Grid: in.Data, SheetName: in.SheetName, Version: in.Version})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, p.ID, model.ActionModifiedData, "Updated content of "+ds.OriginalName)
	return ds, nil
}

// UpdateMeta changes description, tags and visibility.
func (s *DatasetService) UpdateMeta(ctx context.Context, p *model.User, id string, in MetaInput) (*model.Dataset, error) {
	ds, err := s.authorized(ctx, p, id, "File not found", "Not authorized")
	if err != nil {
		return nil, err
	}
	ds, err = s.Apply(ctx, ds, Edit{Description: in.Description, Tags: in.Tags, IsPublic: in.IsPublic, Version: in.Version})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, p.ID, model.ActionModifiedData, "Updated details of "+ds.OriginalName)
	return ds, nil
}

// Apply writes e to ds without authorization checks. A stale e.Version is
// rejected with Conflict. Content changes mark the dataset processing, then
// completed or failed; invalid content is reported as InvalidInput after the
// failure has been recorded.
func (s *DatasetService) Apply(ctx context.Context, ds *model.Dataset, e Edit) (*model.Dataset, error) {
	if e.Version != nil && *e.Version != ds.Version {
		return nil, apperr.Conflicting(fmt.Sprintf("Dataset was modified by another request (version %d, current %d)", *e.Version, ds.Version))
	}
	if e.Description != nil && len([]rune(*e.Description)) > model.MaxDescriptionLength {
		return nil, apperr.Invalid("Validation failed", apperr.FieldError{
			Field:   "description",
			Message: fmt.Sprintf("Description cannot exceed %d characters", model.MaxDescriptionLength),
		})
	}

	if e.hasContent() {
		ds.ProcessingStatus = model.StatusProcessing
		ds.ProcessingError = ""
		if err := s.datasets.Update(ctx, ds); err != nil {
			return nil, storeErr(err, "File not found")
		}
		grid := e.Grid
		if grid == nil && ds.HasContent() {
			grid = ds.Grid[1:]
		}
		if err := s.analyze(ds, e.Headers, grid); err != nil {
			if uerr := s.datasets.Update(ctx, ds); uerr != nil {
				logging.Ctx(ctx).Warn().Err(uerr).Str("dataset_id", ds.ID).Msg("record failed analysis")
			}
			return nil, apperr.Wrap(apperr.InvalidInput, "Invalid data: "+err.Error(), err)
		}
		if e.SheetName != "" {
			ds.SheetName = e.SheetName
		}
	}
	if e.Description != nil {
		ds.Description = strings.TrimSpace(*e.Description)
	}
	if e.Tags != nil {
		ds.Tags = model.NormalizeTags(e.Tags)
	}
	if e.IsPublic != nil {
		ds.IsPublic = *e.IsPublic
	}
	if e.ChartConfig != nil {
		ds.ChartConfig = e.ChartConfig
	}
	if err := s.datasets.Update(ctx, ds); err != nil {
		return nil, storeErr(err, "File not found")
	}
	return ds, nil
}

// analyze sets content on ds and runs inference, leaving ds completed or
// failed.
func (s *DatasetService) analyze(ds *model.Dataset, headers []string, grid [][]model.Cell) error {
	start := s.now()
	if err := ds.SetContent(headers, grid); err != nil {
		ds.ProcessingStatus = model.StatusFailed
		ds.ProcessingError = err.Error()
		datasetsAnalyzed.WithLabelValues(string(model.StatusFailed)).Inc()
		return err
	}
	analysis.Analyze(ds)
	ds.ProcessingStatus = model.StatusCompleted
	ds.ProcessingError = ""
	ds.ProcessingTime = s.now().Sub(start).Milliseconds()
	datasetsAnalyzed.WithLabelValues(string(model.StatusCompleted)).Inc()
	return nil
}

// Process parses the stored file of dataset id and analyzes it. Errors of
// kind NotFound or InvalidInput are permanent.
func (s *DatasetService) Process(ctx context.Context, id string) error {
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return storeErr(err, "File not found")
	}
	log := logging.Ctx(ctx).With().Str("dataset_id", id).Logger()

	ds.ProcessingStatus = model.StatusProcessing
	ds.ProcessingError = ""
	if err := s.datasets.Update(ctx, ds); err != nil {
		return storeErr(err, "File not found")
	}

	res, perr := s.parseStored(ctx, ds)
	if perr != nil {
		ds.ProcessingStatus = model.StatusFailed
		ds.ProcessingError = perr.Error()
		datasetsAnalyzed.WithLabelValues(string(model.StatusFailed)).Inc()
		if err := s.datasets.Update(ctx, ds); err != nil {
			log.Warn().Err(err).Msg("record failed processing")
		}
		log.Warn().Err(perr).Msg("dataset processing failed")
		return perr
	}
	if err := s.analyze(ds, nil, res.Grid); err != nil {
		if uerr := s.datasets.Update(ctx, ds); uerr != nil {
			log.Warn().Err(uerr).Msg("record failed processing")
		}
		return apperr.Wrap(apperr.InvalidInput, "Invalid data: "+err.Error(), err)
	}
	ds.SheetName = res.SheetName
	if err := s.datasets.Update(ctx, ds); err != nil {
		return storeErr(err, "File not found")
	}
	log.Info().
		Int("rows", ds.RowCount).
		Int("columns", ds.ColumnCount).
		Int64("processing_ms", ds.ProcessingTime).
		Msg("dataset processed")
	return nil
}

func (s *DatasetService) parseStored(ctx context.Context, ds *model.Dataset) (*sheet.Result, error) {
	f, err := s.files.Open(ctx, ds.StorageName)
	if err != nil {
		if errors.Is(err, filestore.ErrNotExist) {
			return nil, apperr.Wrap(apperr.NotFound, "File not found", err)
		}
		return nil, apperr.Internalf("Failed to read file", err)
	}
	defer f.Close()
	res, err := sheet.Parse(f, ds.OriginalName)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "Failed to parse file", err)
	}
	return res, nil
}

// Reprocess schedules server-side parsing of an existing dataset.
func (s *DatasetService) Reprocess(ctx context.Context, id string) (*model.Dataset, error) {
	if _, err := s.datasets.Get(ctx, id); err != nil {
		return nil, storeErr(err, "Data not found")
	}
	if err := s.schedule(ctx, id); err != nil {
		if apperr.Is(err, apperr.Internal) {
			return nil, apperr.Internalf("Failed to schedule processing", err)
		}
		return nil, err
	}
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Data not found")
	}
	return ds, nil
}

// Delete removes a dataset owned by p (or any dataset for admins) and its
// stored file.
func (s *DatasetService) Delete(ctx context.Context, p *model.User, id string) error {
	ds, err := s.authorized(ctx, p, id, "File not found", "Not authorized to delete this file")
	if err != nil {
		return err
	}
	if err := s.Remove(ctx, ds); err != nil {
		return err
	}
	s.activity.Record(ctx, p.ID, model.ActionDeletedFile, "Deleted file "+ds.OriginalName)
	return nil
}

// Remove deletes the record and, best effort, its stored file.
func (s *DatasetService) Remove(ctx context.Context, ds *model.Dataset) error {
	if err := s.files.Remove(ctx, ds.StorageName); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("dataset_id", ds.ID).
			Str("file", ds.StorageName).
			Msg("failed to delete stored file")
	}
	if err := s.datasets.Delete(ctx, ds.ID); err != nil {
		return storeErr(err, "File not found")
	}
	return nil
}

// SignedDownloadURL returns a short-lived link to the original file. Backends
// that can presign their own links are used directly.
func (s *DatasetService) SignedDownloadURL(ctx context.Context, p *model.User, id, base string) (signing.SignedURL, error) {
	ds, err := s.authorized(ctx, p, id, "File not found", "Not authorized")
	if err != nil {
		return signing.SignedURL{}, err
	}
	if ps, ok := s.files.(Presigner); ok {
		u, err := ps.PresignURL(ctx, ds.StorageName, ds.OriginalName, s.signedTTL)
		if err != nil {
			return signing.SignedURL{}, apperr.Internalf("Failed to generate url", err)
		}
		return signing.SignedURL{URL: u, Expires: s.now().Add(s.signedTTL).UTC()}, nil
	}
	if s.signer == nil {
		return signing.SignedURL{}, apperr.Internalf("Failed to generate url", errors.New("no signer configured"))
	}
	return s.signer.URL(base, ds.ID, s.signedTTL), nil
}

// OpenSigned validates signed link parameters and opens the file. The caller
// closes the reader.
func (s *DatasetService) OpenSigned(ctx context.Context, id, expires, signature string) (*model.Dataset, io.ReadCloser, error) {
	if s.signer == nil {
		return nil, nil, apperr.Unauthorized("Invalid signature")
	}
	switch err := s.signer.Check(id, expires, signature); {
	case errors.Is(err, signing.ErrMissingParams):
		return nil, nil, apperr.Invalid("Missing parameters")
	case errors.Is(err, signing.ErrExpired):
		return nil, nil, apperr.Unauthorized("URL expired")
	case err != nil:
		return nil, nil, apperr.Unauthorized("Invalid signature")
	}
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err, "File not found")
	}
	f, err := s.files.Open(ctx, ds.StorageName)
	if err != nil {
		if errors.Is(err, filestore.ErrNotExist) {
			return nil, nil, apperr.Missing("File not found")
		}
		return nil, nil, apperr.Internalf("File unavailable", err)
	}
	return ds, f, nil
}
