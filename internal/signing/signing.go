// Package signing produces and checks short-lived HMAC signed download links.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrMissingParams = errors.New("missing parameters")
	ErrExpired       = errors.New("url expired")
	ErrBadSignature  = errors.New("invalid signature")
)

// Signer generates and validates HMAC-SHA256 signatures over a dataset id and
// an expiry timestamp.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns the hex signature of "<id>:<expiresUnix>".
func (s *Signer) Sign(id string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fmt.Sprintf("%s:%d", id, expiresUnix)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate reports whether signature matches id and expires. It does not look
// at the clock.
func (s *Signer) Validate(id, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(s.Sign(id, exp)), []byte(signature))
}

// SignedURL is a download link and its expiry.
type SignedURL struct {
	URL     string    `json:"url"`
	Expires time.Time `json:"expiresAt"`
}

// URL builds base?file=<id>&expires=<unix>&signature=<hex>.
func (s *Signer) URL(base, id string, ttl time.Duration) SignedURL {
	exp := s.now().Add(ttl)
	q := url.Values{}
	q.Set("file", id)
	q.Set("expires", strconv.FormatInt(exp.Unix(), 10))
	q.Set("signature", s.Sign(id, exp.Unix()))
	return SignedURL{URL: base + "?" + q.Encode(), Expires: exp}
}

// Check validates query parameters taken from a URL built by URL.
func (s *Signer) Check(id, expires, signature string) error {
	if id == "" || expires == "" || signature == "" {
		return ErrMissingParams
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if time.Unix(exp, 0).Before(s.now()) {
		return ErrExpired
	}
	if !s.Validate(id, expires, signature) {
		return ErrBadSignature
	}
	return nil
}
