package api

import (
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openrestream/restreamd/internal/logging"
)

// HTTPLoggingMiddleware logs each request once, at a level keyed to the
// response status.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", ctx.URL().Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if query := ctx.URL().RawQuery; query != "" {
		attrs = append(attrs, slog.String("query", query))
	}

	next(ctx)

	status := ctx.Status()
	attrs = append(attrs,
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)

	message := "HTTP request completed"
	switch {
	case method == "OPTIONS":
		logger.LogAttrs(ctx.Context(), slog.LevelDebug, message, attrs...)
	case status >= 500:
		logger.LogAttrs(ctx.Context(), slog.LevelError, message, attrs...)
	case status >= 400:
		logger.LogAttrs(ctx.Context(), slog.LevelWarn, message, attrs...)
	default:
		logger.LogAttrs(ctx.Context(), slog.LevelInfo, message, attrs...)
	}
}
