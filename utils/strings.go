package utils

import "strings"

// SanitizeFilePart keeps a caller-supplied value safe to embed in a
// Content-Disposition filename. Anything outside [a-zA-Z0-9._-] becomes an
// underscore.
func SanitizeFilePart(s string) string {
	if s == "" {
		return "all"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
