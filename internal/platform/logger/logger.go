package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Handlers attach request_id
// and user context per call site.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
