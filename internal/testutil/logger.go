package testutil

import "log/slog"

// NopLogger discards everything
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
