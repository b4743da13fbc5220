package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/config"
	"github.com/dharsanguruparan/SheetDrop/internal/filestore"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/signing"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

type testEnv struct {
	store    *storage.MemoryStore
	files    *filestore.Local
	tokens   *auth.TokenManager
	activity *ActivityLog
	auth     *AuthService
	datasets *DatasetService
	charts   *ChartService
	admin    *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	files, err := filestore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	activity := NewActivityLog(store)
	datasets := NewDatasetService(DatasetDeps{
		Datasets: store.Datasets(),
		Files:    files,
		Activity: activity,
		Signer:   signing.NewSigner([]byte("signing-secret")),
		Upload: config.UploadConfig{
			MaxFileBytes:      1 << 20,
			AllowedExtensions: []string{".csv", ".xls", ".xlsx"},
		},
		SignedURLTTL: time.Minute,
	})
	return &testEnv{
		store:    store,
		files:    files,
		tokens:   tokens,
		activity: activity,
		auth:     NewAuthService(store.Users(), tokens, activity),
		datasets: datasets,
		charts:   NewChartService(datasets, activity),
		admin:    NewAdminService(store, datasets, activity),
	}
}

func (e *testEnv) user(t *testing.T, name string, role model.Role) *model.User {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &model.User{
		ID:           name + "-id",
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := e.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) upload(t *testing.T, owner *model.User, name, body string) *model.Dataset {
	t.Helper()
	ds, err := e.datasets.Upload(context.Background(), owner, &UploadInput{
		Filename:    name,
		ContentType: "text/csv",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return ds
}

func (e *testEnv) actions(t *testing.T) []model.Action {
	t.Helper()
	entries, err := e.store.Activity().List(context.Background(), storage.ActivityQuery{})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	out := make([]model.Action, len(entries))
	for i, en := range entries {
		out[i] = en.Action
	}
	return out
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("kind = %s, want %s (err: %v)", got, want, err)
	}
}

func assertMessage(t *testing.T, err error, want string) {
	t.Helper()
	if got := apperr.From(err).Message; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}
