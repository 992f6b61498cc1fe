// Package api exposes the HTTP control surface: stream CRUD, encoder
// start/stop, uploads, SSE events, logs, health, and metrics.
package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/openrestream/restreamd/internal/api/models"
	"github.com/openrestream/restreamd/internal/events"
	"github.com/openrestream/restreamd/internal/logging"
	"github.com/openrestream/restreamd/internal/streams"
	"github.com/openrestream/restreamd/internal/uploads"
	"github.com/openrestream/restreamd/internal/version"
)

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	StreamService     streams.Service
	Uploads           *uploads.Manager
	EventBus          *events.Bus
	PrometheusHandler http.Handler
}

// Server is the huma v2 API server over Go 1.22+ native routing.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	service    streams.Service
	uploads    *uploads.Manager
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer builds the server, wiring middleware and all routes.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("restreamd API", version.Version)
	config.Info.Description = "Upload a video, bind it to a stream key, and loop it to an RTMP endpoint"
	// Relative paths in the OpenAPI doc work behind any host or proxy.
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		service:  opts.StreamService,
		uploads:  opts.Uploads,
		eventBus: opts.EventBus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Metrics are scraped unauthenticated, outside the huma pipeline.
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// basicAuthMiddleware enforces HTTP basic auth on operations that carry
// a security requirement. SSE clients that cannot set headers may pass
// base64 credentials in the "auth" query parameter.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var credentials string

		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
			if err != nil {
				s.unauthorized(ctx, "Invalid credentials format")
				return
			}
			credentials = string(decoded)
		} else if queryAuth := ctx.Query("auth"); queryAuth != "" {
			decoded, err := base64.StdEncoding.DecodeString(queryAuth)
			if err != nil {
				s.unauthorized(ctx, "Invalid credentials format")
				return
			}
			credentials = string(decoded)
		}

		if credentials == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		parts := strings.SplitN(credentials, ":", 2)
		if len(parts) != 2 || parts[0] != username || parts[1] != password {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, message string) {
	ctx.SetHeader("WWW-Authenticate", `Basic realm="restreamd API"`)
	huma.WriteErr(s.api, ctx, http.StatusUnauthorized, message)
}

// Start serves HTTP on addr; blocks until the server closes.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the server immediately; SSE connections do not drain.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// GetMux returns the underlying mux for additional handlers.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // no auth
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application build information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // no auth
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerStreamRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth marks an operation as requiring basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
