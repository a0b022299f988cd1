package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/requestid"
)

// ErrorPageParams contains data for rendering error pages.
type ErrorPageParams struct {
	Error      string
	StatusCode int
	RequestID  string
}

// ErrorHandlerConfig configures NewErrorHandler.
type ErrorHandlerConfig struct {
	// ErrorPage renders the HTML error page. Nil falls back to plain text.
	ErrorPage func(ErrorPageParams) templ.Component
}

// ErrorInfo contains classified error information.
type ErrorInfo struct {
	StatusCode int
	Key        string
	LogLevel   slog.Level
}

func classifyError(err error) ErrorInfo {
	info := ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Key:        ErrInternalServerError.Key,
		LogLevel:   slog.LevelError,
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		info.StatusCode = httpErr.Code
		info.Key = httpErr.Key
	}
	if info.StatusCode < http.StatusInternalServerError {
		info.LogLevel = slog.LevelWarn
	}
	return info
}

// NewErrorHandler logs the error with the request id and answers with JSON
// for API and Datastar requests or the configured error page otherwise.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("error_handler"))

	return func(ctx Context, err error) {
		r := ctx.Request()
		w := ctx.ResponseWriter()
		reqID := requestid.FromContext(r.Context())
		info := classifyError(err)

		log.LogAttrs(r.Context(), info.LogLevel, "request error",
			logger.RequestID(reqID),
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		switch {
		case WantsJSON(r) || IsDataStar(r):
			if renderErr := JSONError(err).Render(w, r); renderErr != nil {
				log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
			}
			return
		case cfg.ErrorPage == nil:
			http.Error(w, info.Key, info.StatusCode)
			return
		}

		page := cfg.ErrorPage(ErrorPageParams{
			Error:      info.Key,
			StatusCode: info.StatusCode,
			RequestID:  reqID,
		})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(info.StatusCode)
		if renderErr := page.Render(r.Context(), w); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error page",
				logger.RequestID(reqID),
				logger.Error(renderErr),
			)
		}
	}
}
