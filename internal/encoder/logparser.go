package encoder

import "strings"

// ParseLogLevel extracts the log level from FFmpeg output. With
// -loglevel level+info FFmpeg prints "[info] message" or, for
// component-specific logs, "[component @ 0x...] [level] message".
// Returns the level and the message with the level tag stripped but the
// component prefix preserved.
func ParseLogLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	bracket := line[1:end]
	if isLogLevel(bracket) {
		return bracket, line[end+2:]
	}

	// Component prefix: keep the component, strip only the [level].
	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if nextEnd := strings.Index(rest, "] "); nextEnd != -1 {
			if isLogLevel(rest[1:nextEnd]) {
				return rest[1:nextEnd], component + rest[nextEnd+2:]
			}
		}
	}

	return "info", line
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
