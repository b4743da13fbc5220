package signing

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestSigner(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	sig := s.Sign("file123", 1700000000)
	if len(sig) == 0 {
		t.Fatalf("expected signature")
	}
	if !s.Validate("file123", "1700000000", sig) {
		t.Fatalf("expected signature to validate")
	}
	if s.Validate("wrong", "1700000000", sig) {
		t.Fatalf("expected validation to fail for wrong file id")
	}
	if s.Validate("file123", "42", sig) {
		t.Fatalf("expected validation to fail for wrong expiry")
	}
	if NewSigner([]byte("other")).Validate("file123", "1700000000", sig) {
		t.Fatalf("expected validation to fail for another secret")
	}
}

func TestURLAndCheck(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewSigner([]byte("topsecret"))
	s.now = func() time.Time { return now }

	signed := s.URL("/api/files/download", "ds-1", 5*time.Minute)
	u, err := url.Parse(signed.URL)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if u.Path != "/api/files/download" || q.Get("file") != "ds-1" {
		t.Fatalf("URL = %s", signed.URL)
	}

	tests := []struct {
		name    string
		id      string
		expires string
		sig     string
		at      time.Time
		want    error
	}{
		{name: "valid", id: "ds-1", expires: q.Get("expires"), sig: q.Get("signature"), at: now},
		{name: "missing", id: "ds-1", expires: "", sig: q.Get("signature"), at: now, want: ErrMissingParams},
		{name: "tampered id", id: "ds-2", expires: q.Get("expires"), sig: q.Get("signature"), at: now, want: ErrBadSignature},
		{name: "tampered signature", id: "ds-1", expires: q.Get("expires"), sig: tamper(q.Get("signature")), at: now, want: ErrBadSignature},
		{name: "non numeric expiry", id: "ds-1", expires: "soon", sig: q.Get("signature"), at: now, want: ErrBadSignature},
		{name: "expired", id: "ds-1", expires: q.Get("expires"), sig: q.Get("signature"), at: now.Add(10 * time.Minute), want: ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			s.now = func() time.Time { return at }
			if err := s.Check(tt.id, tt.expires, tt.sig); !errors.Is(err, tt.want) {
				t.Errorf("Check() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func tamper(sig string) string {
	b := []byte(sig)
	if b[0] == '0' {
		b[0] = '1'
	} else {
		b[0] = '0'
	}
	return string(b)
}
