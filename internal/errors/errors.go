package errors

import (
	"log/slog"
	"sync"
)

var (
	defaultHandler *ErrorHandler
	once           sync.Once
	handlerErr     error
)

func GetDefaultHandler() (*ErrorHandler, error) {
	once.Do(func() {
		defaultHandler, handlerErr = NewErrorHandler()
	})
	return defaultHandler, handlerErr
}

// HandleError reports err through the default handler, falling back to the
// process-wide slog logger when no log file could be opened.
func HandleError(err error) {
	if handler, hErr := GetDefaultHandler(); hErr == nil {
		handler.Handle(err)
		return
	}
	if err != nil {
		slog.Error(err.Error())
	}
}

// resetDefaultHandler resets the singleton for testing purposes
func resetDefaultHandler() {
	defaultHandler = nil
	handlerErr = nil
	once = sync.Once{}
}
