package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// NowStamp returns a compact UTC timestamp suitable for filenames.
func NowStamp() string {
	return time.Now().UTC().Format("20060102-150405")
}

// SecureFilename strips an uploaded filename down to a safe basename:
// path separators removed, anything outside [A-Za-z0-9._-] replaced with
// underscores, leading dots dropped. Returns "" if nothing safe remains,
// so callers can substitute a generated name.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return ""
	}
	return cleaned
}

// FallbackFilename builds a name for uploads that arrive without a usable one.
func FallbackFilename(mediaType string) string {
	return fmt.Sprintf("%s-%s", mediaType, NowStamp())
}
