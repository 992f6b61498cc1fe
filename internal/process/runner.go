package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser parses a subprocess output line and returns the log level
// and message. Used to extract structured log info from encoder output.
type LogParser func(line string) (level, msg string)

// Killed is the exit code reported when the process had to be force
// killed after the grace period.
const Killed = 137

const defaultGracefulTimeout = 5 * time.Second
const defaultKillTimeout = 5 * time.Second

// Runner manages the lifecycle of a single subprocess.
type Runner struct {
	id            string
	argv          []string
	cmd           *exec.Cmd
	logger        *slog.Logger
	processLogger *slog.Logger // logger for process output (nil = use logger)
	logParser     LogParser    // parses process output for log level (nil = no parsing)
	outputHandler OutputHandler

	gracefulTimeout time.Duration // wait after SIGINT before force kill
	killTimeout     time.Duration // wait after SIGKILL before giving up

	exitCode int
	done     chan struct{} // closed after process exit and output drain
	doneOnce sync.Once     // the kill-timeout path also closes done
}

// NewRunner creates a runner for the given argument vector. argv[0] is
// the executable.
func NewRunner(id string, argv []string, logger *slog.Logger) *Runner {
	return &Runner{
		id:              id,
		argv:            argv,
		logger:          logger,
		gracefulTimeout: defaultGracefulTimeout,
		killTimeout:     defaultKillTimeout,
		done:            make(chan struct{}),
	}
}

// SetLogParser sets a custom logger and log parser for process output.
// The logger is used for output lines (e.g. module="ffmpeg"); the parser
// extracts log levels from the encoder's output format.
func (r *Runner) SetLogParser(logger *slog.Logger, parser LogParser) {
	r.processLogger = logger
	r.logParser = parser
}

// SetOutputHandler registers a handler receiving every output line.
func (r *Runner) SetOutputHandler(handler OutputHandler) {
	r.outputHandler = handler
}

// SetGracefulTimeout overrides the SIGINT grace period.
func (r *Runner) SetGracefulTimeout(d time.Duration) {
	r.gracefulTimeout = d
}

// Start spawns the subprocess. A spawn failure (missing executable,
// OS-level error) is returned synchronously; after a successful Start
// the exit is observable via Done.
func (r *Runner) Start() error {
	if len(r.argv) == 0 {
		return fmt.Errorf("empty argument vector")
	}

	r.cmd = exec.Command(r.argv[0], r.argv[1:]...)
	r.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := r.cmd.Start(); err != nil {
		r.logger.Error("Failed to start process", "id", r.id, "error", err)
		return err
	}

	r.logger.Info("Process started", "id", r.id, "pid", r.cmd.Process.Pid)

	outputDone := make(chan struct{}, 2)
	go func() {
		r.streamOutput(stdout, "stdout")
		outputDone <- struct{}{}
	}()
	go func() {
		r.streamOutput(stderr, "stderr")
		outputDone <- struct{}{}
	}()

	go func() {
		// Wait closes the pipes; reading must finish first or the
		// scanners lose the process's final output lines.
		<-outputDone
		<-outputDone
		code := exitCodeFromError(r.cmd.Wait())
		r.finish(code)
	}()

	return nil
}

// PID returns the subprocess pid, 0 if not started.
func (r *Runner) PID() int {
	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// Done is closed once the process has exited and its output is drained.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// finish records the exit code and closes done, once. Whichever of the
// exit observer and the kill-timeout path gets here first wins.
func (r *Runner) finish(code int) {
	r.doneOnce.Do(func() {
		r.exitCode = code
		close(r.done)
	})
}

// ExitCode is valid after Done is closed.
func (r *Runner) ExitCode() int {
	return r.exitCode
}

// Stop sends SIGINT, waits up to the grace period, escalates to SIGKILL,
// and returns the exit code once the process is confirmed dead. Safe to
// call concurrently with a spontaneous exit; whichever happens first
// wins and the other path is a no-op.
func (r *Runner) Stop() int {
	r.sendStopSignal()
	return r.waitForExit()
}

// sendStopSignal sends SIGINT to the subprocess without waiting.
func (r *Runner) sendStopSignal() {
	if r.cmd == nil || r.cmd.Process == nil {
		return
	}
	r.logger.Info("Sending SIGINT to process", "id", r.id, "pid", r.cmd.Process.Pid)
	if err := r.cmd.Process.Signal(syscall.SIGINT); err != nil {
		if !errors.Is(err, os.ErrProcessDone) {
			r.logger.Warn("Failed to send SIGINT", "id", r.id, "error", err)
		}
	}
}

// waitForExit waits for the process to exit, force-killing after the
// grace period.
func (r *Runner) waitForExit() int {
	select {
	case <-r.done:
		return r.exitCode
	case <-time.After(r.gracefulTimeout):
		r.logger.Warn("Graceful shutdown timeout, forcing kill", "id", r.id, "timeout", r.gracefulTimeout)
		if r.cmd.Process != nil {
			if err := r.cmd.Process.Kill(); err != nil {
				// Process may have exited between the timeout and the kill.
				if !errors.Is(err, os.ErrProcessDone) {
					r.logger.Error("Failed to kill process", "id", r.id, "error", err)
				}
			}
		}
		select {
		case <-r.done:
			return r.exitCode
		case <-time.After(r.killTimeout):
			// Done must still close so exit observers are not stranded
			// waiting on a process that will not die (or on pipes held
			// open by an orphaned child).
			r.logger.Error("Process did not exit after kill signal", "id", r.id)
			r.finish(Killed)
			return Killed
		}
	}
}

// exitCodeFromError extracts the exit code from a Wait error: 0 for nil,
// the process exit code for ExitError, 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// streamOutput re-logs subprocess output line by line, mapping levels
// through the configured parser.
func (r *Runner) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)

	logger := r.processLogger
	if logger == nil {
		logger = r.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		if r.outputHandler != nil {
			r.outputHandler.HandleLine(source, line)
		}

		level, msg := "info", line
		if r.logParser != nil {
			level, msg = r.logParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("Error reading output", "id", r.id, "source", source, "error", err)
	}
}
