package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/requestid"
	"github.com/dmitrymomot/agencyhub/pkg/validator"
)

// ErrorRule maps a domain error, matched with errors.Is, to an HTTPError.
type ErrorRule struct {
	Target error
	HTTP   HTTPError
}

// ErrorInfo is the classified form of an error.
type ErrorInfo struct {
	StatusCode int
	Key        string
	Message    string
	Details    []validator.ValidationError
	LogLevel   slog.Level
}

// Classify resolves err against rules. HTTPError values and validation
// errors are recognized without a rule; anything else is a 500.
func Classify(err error, rules ...ErrorRule) ErrorInfo {
	info := ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Key:        ErrInternalServerError.Key,
		Message:    "An error occurred processing your request",
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		info.StatusCode, info.Key = httpErr.Code, httpErr.Key
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			info.StatusCode, info.Key = rule.HTTP.Code, rule.HTTP.Key
			break
		}
	}
	if ve := validator.ExtractValidationErrors(err); ve != nil {
		info.StatusCode = http.StatusUnprocessableEntity
		info.Key = "validation_error"
		info.Details = ve
	}

	if info.StatusCode < http.StatusInternalServerError {
		info.Message = http.StatusText(info.StatusCode)
		info.LogLevel = slog.LevelWarn
	} else {
		info.LogLevel = slog.LevelError
	}
	return info
}

// NewErrorHandler logs the error and answers with a JSON error body.
func NewErrorHandler(log *slog.Logger, rules ...ErrorRule) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx Context, err error) {
		r := ctx.Request()
		info := Classify(err, rules...)

		log.LogAttrs(r.Context(), info.LogLevel, "request error",
			logger.Component("http"),
			logger.Error(err),
			slog.String("request_id", requestid.FromContext(r.Context())),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if renderErr := JSONError(info).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
		}
	}
}
