// Package cmd holds auxiliary cobra subcommands.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openrestream/restreamd/internal/encoder"
	"github.com/openrestream/restreamd/internal/logging"
	"github.com/openrestream/restreamd/internal/process"
	"github.com/openrestream/restreamd/internal/streams/store"
)

// CreateStreamCmd creates the stream subcommand, which runs one
// encoder in the foreground without the HTTP control surface. Useful
// under a process supervisor or for debugging a single stream.
func CreateStreamCmd() *cobra.Command {
	var storeFile string
	var rtmpEndpoint string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "stream [stream-id]",
		Short: "Run one encoder in the foreground",
		Long: `Loads the stream record from the store file, builds the FFmpeg command line, ` +
			`and supervises the process until it exits or the command receives SIGINT/SIGTERM.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			streamID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid stream id %q\n", args[0])
				os.Exit(1)
			}

			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("stream").With("stream_id", streamID)

			streamStore, err := store.Open(storeFile)
			if err != nil {
				logger.Error("Failed to open stream store", "error", err, "file", storeFile)
				os.Exit(1)
			}

			st, ok := streamStore.GetStream(streamID)
			if !ok {
				logger.Error("Stream not found")
				os.Exit(1)
			}
			if st.VideoPath == "" || st.StreamKey == "" {
				logger.Error("Stream has no video or no stream key")
				os.Exit(1)
			}

			argv := encoder.Command(st.EncoderConfig(), rtmpEndpoint)

			runner := process.NewRunner(args[0], argv, logger)
			runner.SetLogParser(logging.GetLogger("ffmpeg"), encoder.ParseLogLevel)

			if startErr := runner.Start(); startErr != nil {
				logger.Error("Failed to start encoder", "error", startErr)
				os.Exit(1)
			}
			logger.Info("Encoder started", "pid", runner.PID())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-runner.Done():
			case sig := <-sigCh:
				logger.Info("Signal received, stopping encoder", "signal", sig.String())
				runner.Stop()
			}

			exitCode := runner.ExitCode()
			logger.Info("Encoder exited", "exit_code", exitCode)
			os.Exit(exitCode)
		},
	}

	cmd.Flags().StringVar(&storeFile, "store", "streams.toml", "Path to the stream store file")
	cmd.Flags().StringVar(&rtmpEndpoint, "rtmp-endpoint", "rtmp://a.rtmp.youtube.com/live2",
		"Base RTMP ingest URL")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
