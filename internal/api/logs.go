package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/openrestream/restreamd/internal/api/models"
	"github.com/openrestream/restreamd/internal/events"
	"github.com/openrestream/restreamd/internal/logging"
)

// registerLogRoutes registers the ring-buffer dump, the live log SSE
// stream, and runtime level adjustment.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Return the in-memory ring buffer of recent log entries",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.LogsResponse, error) {
		entries := logging.Buffer().ReadAll()
		out := make([]models.LogEntryData, len(entries))
		for i, entry := range entries {
			out[i] = models.LogEntryData{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			}
		}
		return &models.LogsResponse{
			Body: models.LogsData{
				Entries: out,
				Count:   len(out),
			},
		}, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Streams historical logs from the ring buffer, then live entries",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		for _, entry := range logging.Buffer().ReadAll() {
			ev := events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			}
			if err := send.Data(ev); err != nil {
				return
			}
		}

		// Logs burst; a deep buffer keeps slow clients from dropping lines.
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/modules/{module}",
		Summary:     "Set Module Log Level",
		Description: "Adjust one module's log level at runtime",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(ctx context.Context, input *struct {
		Module string `path:"module" example:"streams" doc:"Module name"`
		Body   models.LogLevelBody
	}) (*struct{}, error) {
		if !logging.SetModuleLevel(input.Module, input.Body.Level) {
			return nil, huma.Error400BadRequest("invalid level: " + input.Body.Level)
		}
		return &struct{}{}, nil
	})
}
