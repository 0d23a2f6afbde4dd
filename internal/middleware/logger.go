package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type ContextKey string

const LoggerKey ContextKey = "logger"

// RequestLogger puts a request-scoped logger on the context and logs every
// finished request with its status and duration.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With("request_id", chimiddleware.GetReqID(r.Context()))
			ctx := context.WithValue(r.Context(), LoggerKey, reqLog)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			reqLog.Log(r.Context(), level, "request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// GetLogger returns the request logger, or slog.Default outside a request.
func GetLogger(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}
