package filestore

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Save(ctx, "a.csv", strings.NewReader("x,y\n1,2\n"), 8, "text/csv"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := l.Save(ctx, "a.csv", strings.NewReader("again"), 5, "text/csv"); err == nil {
		t.Error("Save() overwrote an existing file")
	}
	rc, err := l.Open(ctx, "a.csv")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "x,y\n1,2\n" {
		t.Errorf("content = %q", b)
	}
	if err := l.Remove(ctx, "a.csv"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Open(ctx, "a.csv"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Open() after remove error = %v", err)
	}
	if err := l.Remove(ctx, "a.csv"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Remove() twice error = %v", err)
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	l, _ := NewLocal(t.TempDir())
	for _, name := range []string{"../x", "a/b", "", ".hidden"} {
		if err := l.Save(context.Background(), name, strings.NewReader("x"), 1, ""); err == nil {
			t.Errorf("Save(%q) should fail", name)
		}
	}
}

func TestGenerateName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	got := GenerateName("../../etc/Sales Report (Q1).xlsx", now)
	re := regexp.MustCompile(`^1700000000123-\d{9}-Sales_Report__Q1_.xlsx$`)
	if !re.MatchString(got) {
		t.Errorf("GenerateName() = %q", got)
	}
	if GenerateName("a.csv", now) == GenerateName("a.csv", now) {
		t.Error("names should carry a random component")
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"report.csv":       "report.csv",
		"..\\..\\evil.csv": "evil.csv",
		"...":              "upload",
		"данные.xlsx":      "______.xlsx",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
