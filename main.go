package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/openrestream/restreamd/cmd"
	"github.com/openrestream/restreamd/internal/api"
	"github.com/openrestream/restreamd/internal/config"
	"github.com/openrestream/restreamd/internal/events"
	"github.com/openrestream/restreamd/internal/logging"
	"github.com/openrestream/restreamd/internal/metrics"
	"github.com/openrestream/restreamd/internal/stats"
	"github.com/openrestream/restreamd/internal/streams"
	"github.com/openrestream/restreamd/internal/streams/store"
	"github.com/openrestream/restreamd/internal/uploads"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"restreamd.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`

	// Stream settings
	StreamsFile  string `help:"Stream store file" default:"streams.toml" toml:"streams.file" env:"STREAMS_FILE"`
	RtmpEndpoint string `help:"Base RTMP ingest URL" default:"rtmp://a.rtmp.youtube.com/live2" toml:"streams.rtmp_endpoint" env:"RTMP_ENDPOINT"`

	// Upload settings
	UploadDir string `help:"Upload directory" default:"uploads" toml:"uploads.dir" env:"UPLOAD_DIR"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingStreams string `help:"Streams logging level" default:"info" toml:"logging.streams" env:"LOGGING_STREAMS"`
	LoggingFfmpeg  string `help:"Encoder output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"streams": opts.LoggingStreams,
				"ffmpeg":  opts.LoggingFfmpeg,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
			},
		})
		logger := logging.GetLogger("main")

		eventBus := events.New()

		// Bridge log entries onto the bus for the SSE log stream.
		logging.SetEntryCallback(func(entry logging.Entry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		streamStore, err := store.Open(opts.StreamsFile)
		if err != nil {
			logger.Error("Failed to open stream store", "error", err, "file", opts.StreamsFile)
			os.Exit(1)
		}

		// Active flags from a previous run are stale: no encoder
		// survives a restart of this process.
		for _, st := range streamStore.ListStreams() {
			if st.IsActive {
				if clearErr := streamStore.SetActive(st.ID, false); clearErr != nil {
					logger.Warn("Failed to clear stale active flag", "stream_id", st.ID, "error", clearErr)
				}
			}
		}

		uploadManager, err := uploads.NewManager(opts.UploadDir)
		if err != nil {
			logger.Error("Failed to prepare upload directory", "error", err, "dir", opts.UploadDir)
			os.Exit(1)
		}

		manager := streams.NewManager(streams.ManagerOptions{
			Bus:          eventBus,
			BaseEndpoint: opts.RtmpEndpoint,
		})

		streamService := streams.NewService(streamStore, manager, uploadManager, eventBus)

		// The janitor reclaims uploads abandoned without being attached.
		janitor := uploads.NewJanitor(uploadManager, uploads.WithKeepFunc(func(path string) bool {
			for _, st := range streamStore.ListStreams() {
				if st.VideoPath == path {
					return true
				}
			}
			return false
		}))

		simulator := stats.NewSimulator(streamStore, manager, eventBus)

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			StreamService:     streamService,
			Uploads:           uploadManager,
			EventBus:          eventBus,
			PrometheusHandler: metrics.Handler(),
		})

		hooks.OnStart(func() {
			if startErr := janitor.Start(); startErr != nil {
				logger.Warn("Failed to start upload janitor", "error", startErr)
			}
			simulator.Start()

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			logger.Info("Stopping all encoder processes")
			manager.StopAll()

			simulator.Stop()
			if stopErr := janitor.Stop(); stopErr != nil {
				logger.Warn("Error stopping upload janitor", "error", stopErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateStreamCmd())
	cli.Run()
}
