package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
)

// AllowedExt checks ext against exts, or the default analysis set when exts is nil.
func AllowedExt(ext string, exts map[string]struct{}) bool {
	ext = constants.NormalizeExt(ext)
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && base != ".." && strings.HasPrefix(base, ".")
}

// ExtSet builds a lookup set from user supplied extensions; an empty list
// yields nil (the default set).
func ExtSet(exts []string) map[string]struct{} {
	var out map[string]struct{}
	for _, e := range exts {
		e = constants.NormalizeExt(e)
		if e == "" {
			continue
		}
		if out == nil {
			out = map[string]struct{}{}
		}
		out[e] = struct{}{}
	}
	return out
}

func hasGlobMeta(p string) bool {
	return strings.ContainsAny(p, "*?[")
}
