package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON to stdout; handlers and
// services pull request-scoped attributes from context themselves.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
