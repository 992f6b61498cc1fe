package encoder

import (
	"fmt"
	"strconv"
	"strings"
)

// Binary is the encoder executable name resolved via PATH.
const Binary = "ffmpeg"

// Portrait streams always target a fixed 720x1280 canvas.
const (
	portraitWidth  = 720
	portraitHeight = 1280
)

// Fixed tuning for low-latency CBR-ish RTMP publishing: real-time input
// pacing, 2s keyframe interval at 30fps, AAC 44.1kHz stereo at 128k, FLV
// container.
const (
	videoCodec       = "libx264"
	videoPreset      = "veryfast"
	keyframeInterval = "60"
	audioCodec       = "aac"
	audioBitrate     = "128k"
	audioSampleRate  = "44100"
	audioChannels    = "2"
)

// Command builds the full FFmpeg argument vector for a stream config.
// Deterministic: the same config and endpoint always yield the same
// argument sequence. baseEndpoint is the RTMP ingest URL the stream key
// is appended to.
func Command(cfg Config, baseEndpoint string) []string {
	args := []string{
		Binary,
		"-hide_banner",
		"-loglevel", "level+info",
		"-re",
	}

	if cfg.Loop {
		args = append(args, "-stream_loop", "-1")
	}

	args = append(args, "-i", cfg.SourcePath)

	args = append(args,
		"-vf", videoFilter(cfg),
		"-af", "volume="+gain(cfg),
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-tune", "zerolatency",
		"-pix_fmt", "yuv420p",
	)

	p := classProfile(cfg.Resolution)
	args = append(args,
		"-b:v", p.MaxRate,
		"-maxrate", p.MaxRate,
		"-bufsize", p.BufSize,
		"-g", keyframeInterval,
		"-keyint_min", keyframeInterval,
		"-sc_threshold", "0",
	)

	args = append(args,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-ar", audioSampleRate,
		"-ac", audioChannels,
	)

	args = append(args, "-f", "flv", Destination(baseEndpoint, cfg.StreamKey))
	return args
}

// Destination composes the publish URL from the base ingest endpoint and
// the stream key.
func Destination(baseEndpoint, streamKey string) string {
	return strings.TrimRight(baseEndpoint, "/") + "/" + streamKey
}

// videoFilter returns the scale+pad chain for the configured geometry.
// The source is always letterboxed onto the target canvas, never cropped.
func videoFilter(cfg Config) string {
	width, height := portraitWidth, portraitHeight
	if cfg.Orientation != OrientationPortrait {
		p := classProfile(cfg.Resolution)
		width, height = p.Width, p.Height
	}
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black",
		width, height, width, height,
	)
}

// gain returns the linear audio gain as a filter value. Mute wins over
// the configured volume.
func gain(cfg Config) string {
	if cfg.Muted {
		return "0"
	}
	volume := cfg.Volume
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return strconv.FormatFloat(float64(volume)/100, 'f', -1, 64)
}
