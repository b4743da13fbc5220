package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()

	u := &model.User{ID: "u1", Username: "ann", Email: "ann@example.com", Role: model.RoleUser, IsActive: true}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	dup := &model.User{ID: "u2", Email: "ANN@example.com"}
	if err := users.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate email error = %v, want ErrConflict", err)
	}

	got, err := users.GetByEmail(ctx, "Ann@Example.com")
	if err != nil || got.ID != "u1" {
		t.Fatalf("GetByEmail() = %+v, %v", got, err)
	}
	got.Username = "mutated"
	again, _ := users.Get(ctx, "u1")
	if again.Username != "ann" {
		t.Error("Get() returned an alias of stored state")
	}

	if err := users.Delete(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := users.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := users.Update(ctx, u); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() of missing user error = %v", err)
	}
}

func TestMemoryDatasetsVersioning(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryStore().Datasets()

	d := &model.Dataset{ID: "d1", OwnerID: "u1", OriginalName: "a.csv"}
	if err := ds.Create(ctx, d); err != nil {
		t.Fatal(err)
	}
	if d.Version != 1 {
		t.Fatalf("Version after create = %d, want 1", d.Version)
	}

	first, _ := ds.Get(ctx, "d1")
	second, _ := ds.Get(ctx, "d1")

	first.Description = "first writer"
	if err := ds.Update(ctx, first); err != nil {
		t.Fatalf("first Update() error = %v", err)
	}
	if first.Version != 2 {
		t.Errorf("Version = %d, want 2", first.Version)
	}

	second.Description = "second writer"
	if err := ds.Update(ctx, second); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("stale Update() error = %v, want ErrVersionMismatch", err)
	}

	stored, _ := ds.Get(ctx, "d1")
	if stored.Description != "first writer" {
		t.Errorf("Description = %q", stored.Description)
	}

	stored.OwnerID = "someone-else"
	if err := ds.Update(ctx, stored); err != nil {
		t.Fatal(err)
	}
	if after, _ := ds.Get(ctx, "d1"); after.OwnerID != "u1" {
		t.Errorf("owner changed to %q", after.OwnerID)
	}
}

func TestMemoryDatasetsList(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryStore().Datasets()
	base := time.Now().Add(-time.Hour)
	seed := []model.Dataset{
		{ID: "a", OwnerID: "u1", OriginalName: "alpha.csv", ByteSize: 10, CreatedAt: base, IsPublic: true},
		{ID: "b", OwnerID: "u1", OriginalName: "beta.xlsx", ByteSize: 30, CreatedAt: base.Add(time.Minute)},
		{ID: "c", OwnerID: "u2", OriginalName: "gamma.csv", ByteSize: 20, CreatedAt: base.Add(2 * time.Minute), IsPublic: true},
	}
	for i := range seed {
		d := seed[i]
		d.Grid = [][]model.Cell{model.Row("h")}
		if err := ds.Create(ctx, &d); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		q         DatasetQuery
		wantIDs   []string
		wantTotal int
	}{
		{name: "newest first", q: DatasetQuery{}, wantIDs: []string{"c", "b", "a"}, wantTotal: 3},
		{name: "by owner", q: DatasetQuery{OwnerID: "u1"}, wantIDs: []string{"b", "a"}, wantTotal: 2},
		{name: "public only", q: DatasetQuery{PublicOnly: true}, wantIDs: []string{"c", "a"}, wantTotal: 2},
		{name: "search", q: DatasetQuery{Search: "CSV"}, wantIDs: []string{"c", "a"}, wantTotal: 2},
		{name: "size ascending", q: DatasetQuery{SortBy: SortFileSize, SortAsc: true}, wantIDs: []string{"a", "c", "b"}, wantTotal: 3},
		{name: "paged", q: DatasetQuery{Limit: 1, Offset: 1}, wantIDs: []string{"b"}, wantTotal: 3},
		{name: "offset past end", q: DatasetQuery{Offset: 10}, wantIDs: []string{}, wantTotal: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := ds.List(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d datasets, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("got[%d] = %q, want %q", i, got[i].ID, id)
				}
				if got[i].Grid != nil {
					t.Errorf("listing kept grid of %q", got[i].ID)
				}
			}
		})
	}

	st, err := ds.Stats(ctx, DatasetQuery{OwnerID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 2 || st.TotalBytes != 40 {
		t.Errorf("Stats() = %+v, want 2 files / 40 bytes", st)
	}
}

func TestMemoryActivity(t *testing.T) {
	ctx := context.Background()
	act := NewMemoryStore().Activity()
	for i, a := range []model.Action{model.ActionLogin, model.ActionUploadedFile, model.ActionLogout} {
		e := &model.ActivityLogEntry{ID: string(rune('a' + i)), UserID: "u1", Action: a}
		if err := act.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	_ = act.Append(ctx, &model.ActivityLogEntry{ID: "z", UserID: "u2", Action: model.ActionLogin})

	got, _ := act.List(ctx, ActivityQuery{Limit: 2})
	if len(got) != 2 || got[0].ID != "z" || got[1].Action != model.ActionLogout {
		t.Errorf("List(limit 2) = %+v", got)
	}
	mine, _ := act.List(ctx, ActivityQuery{UserID: "u1"})
	if len(mine) != 3 || mine[0].Action != model.ActionLogout {
		t.Errorf("List(user u1) = %+v", mine)
	}
}
