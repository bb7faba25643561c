package core

import (
	"path/filepath"
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// HasAllowedExtension reports whether filename ends with one of the extensions (without dot, case-insensitive).
func HasAllowedExtension(filename string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// Today returns the current UTC calendar day.
func Today() Date {
	return NewDate(NowFunc())
}

// NowFunc is mockable in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }
