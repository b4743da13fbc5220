package filestore

import (
	"crypto/rand"
	"math/big"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// GenerateName returns "<unixMillis>-<random9>-<sanitized original>" so
// uploads never collide and never carry path components.
func GenerateName(original string, now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomDigits(9) + "-" + Sanitize(original)
}

// Sanitize keeps the base name and replaces anything outside letters, digits,
// dot, dash and underscore.
func Sanitize(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}

func randomDigits(n int) string {
	max := big.NewInt(10)
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, max)
		if err != nil {
			buf[i] = byte('0' + time.Now().UnixNano()%10)
			continue
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf)
}
