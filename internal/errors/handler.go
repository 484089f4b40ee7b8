package errors

import (
	"context"
	"errors"
	"log/slog"

	"railsnew/internal/ui"
)

// ErrorHandler records terminal errors as JSON in the log file and reports
// them on the console.
type ErrorHandler struct {
	logger  *slog.Logger
	console *ui.Console
}

func NewErrorHandler() (*ErrorHandler, error) {
	f, err := openLogFile()
	if err != nil {
		return nil, err
	}

	return &ErrorHandler{
		logger:  slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})),
		console: ui.NewConsole(),
	}, nil
}

// Logger returns the file-backed logger. Installing it as the default keeps
// the terminal free for the engine's output.
func (h *ErrorHandler) Logger() *slog.Logger {
	return h.logger
}

func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var rnErr *RailsNewError
	if !errors.As(err, &rnErr) {
		h.logger.Error("Unhandled error occurred", "error", err.Error(), "type", "generic")
		h.console.PrintError(err.Error())
		return
	}

	h.logger.LogAttrs(context.Background(), slog.LevelError, "rails-new error occurred", errorAttrs(rnErr)...)
	h.console.PrintError(h.console.FormatErrorMessage(rnErr.Context, rnErr.Cause, rnErr.Suggestion))
}

func errorAttrs(err *RailsNewError) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("error", err.Error()),
		slog.String("type", getErrorTypeName(err.Type)),
		slog.String("context", err.Context),
		slog.Int("exit_code", err.ExitCode),
	}
	if err.Cause != "" {
		attrs = append(attrs, slog.String("cause", err.Cause))
	}
	if err.Suggestion != "" {
		attrs = append(attrs, slog.String("suggestion", err.Suggestion))
	}
	return attrs
}

var errorTypeNames = map[error]string{
	ErrSpawnFailed:    "spawn_failure",
	ErrPayloadWrite:   "payload_write_failure",
	ErrPathResolution: "path_resolution_error",
	ErrBuildPhase:     "build_phase_failure",
	ErrRunPhase:       "run_phase_failure",
	ErrConfigInvalid:  "config_invalid",
	ErrRuntimeFailed:  "runtime_failed",
	ErrInterrupted:    "interrupted",
}

func getErrorTypeName(errType error) string {
	if name, ok := errorTypeNames[errType]; ok {
		return name
	}
	return "unknown"
}
