// Package logger sets up the process-wide structured logger and the
// dual-level "always-on vs. network-debug" logging convention the
// connector uses: manual/user-triggered failures log loud, background
// ones log quiet.
package logger

import (
	"log/slog"
	"os"
)

// Setup builds the default text-handler logger, debug level so nothing
// is filtered before the caller decides what it wants to see.
func Setup() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// ConnectFailure logs a connect failure at a level that depends on
// whether the attempt was manual (a user-initiated connect, always
// logged) or automatic (a background reconnect/retry, logged only at
// debug under the "net" category).
func ConnectFailure(log *slog.Logger, manual bool, msg string, args ...any) {
	if log == nil {
		return
	}
	if manual {
		log.Error(msg, args...)
	} else {
		log.Debug(msg, append([]any{slog.String("category", "net")}, args...)...)
	}
}
