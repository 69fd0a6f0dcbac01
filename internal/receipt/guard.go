package receipt

import "log/slog"

// guard runs fn and converts a panic into an error log. The caller keeps
// whatever state fn had not yet written.
func guard(logger *slog.Logger, field string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("receipt field processing failed, skipping", "field", field, "panic", r)
			ok = false
		}
	}()
	fn()
	return true
}
