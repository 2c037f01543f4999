package errors

import (
	"errors"
	"log/slog"
	"sort"
)

// Log logs an error using the default slog logger, extracting metadata if it's
// a StructuredError.
func Log(err error) {
	LogTo(slog.Default(), err)
}

// LogTo logs an error at the error level using logger, with any additional
// args.
func LogTo(logger *slog.Logger, err error, args ...any) {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		logger.Error(err.Error(), args...)
		return
	}

	logger.Error(serr.Error(), append(Fields(serr), args...)...)
}

// Fields returns the slog fields of err. If err is a StructuredError, its cause
// and metadata are rendered as fields sorted by key. Otherwise the error
// message is returned under the "error" key.
func Fields(err error) []any {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		return []any{"error", err.Error()}
	}

	fields := make([]any, 0, len(serr.metadata)*2+2)

	cause := serr.metadata["cause"]
	if serr.cause != nil {
		cause = serr.cause
	}
	if cause != nil {
		fields = append(fields, "cause", cause)
	}

	keys := make([]string, 0, len(serr.metadata))
	for k := range serr.metadata {
		if k != "cause" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		fields = append(fields, k, serr.metadata[k])
	}

	return fields
}
