package encoder

import (
	"reflect"
	"slices"
	"strings"
	"testing"
)

const testEndpoint = "rtmp://live.example.com/app"

func baseConfig() Config {
	return Config{
		StreamID:    7,
		SourcePath:  "/var/lib/restreamd/uploads/clip.mp4",
		StreamKey:   "sk-secret",
		Resolution:  ResolutionMediumHigh,
		Orientation: OrientationLandscape,
		Volume:      50,
	}
}

func TestCommandIsDeterministic(t *testing.T) {
	cfg := baseConfig()
	first := Command(cfg, testEndpoint)
	second := Command(cfg, testEndpoint)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same config produced different argument sequences:\n%v\n%v", first, second)
	}
}

func TestCommand720pLandscape(t *testing.T) {
	args := Command(baseConfig(), testEndpoint)

	joined := strings.Join(args, " ")
	wantFilter := "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2:color=black"
	if !strings.Contains(joined, wantFilter) {
		t.Errorf("missing 1280x720 scale/pad filter in %q", joined)
	}
	if !strings.Contains(joined, "volume=0.5") {
		t.Errorf("missing volume=0.5 audio gain in %q", joined)
	}
	if slices.Contains(args, "-stream_loop") {
		t.Error("non-looping config produced -stream_loop")
	}
	if args[len(args)-1] != "rtmp://live.example.com/app/sk-secret" {
		t.Errorf("destination = %q, want base endpoint + key", args[len(args)-1])
	}
}

func TestCommandPortraitGeometry(t *testing.T) {
	cfg := baseConfig()
	cfg.Orientation = OrientationPortrait

	// Portrait ignores the class geometry, even for high.
	for _, class := range []ResolutionClass{ResolutionLow, ResolutionMediumHigh, ResolutionHigh} {
		cfg.Resolution = class
		joined := strings.Join(Command(cfg, testEndpoint), " ")
		if !strings.Contains(joined, "scale=720:1280:") || !strings.Contains(joined, "pad=720:1280:") {
			t.Errorf("class %s: portrait filter not targeting 720x1280: %q", class, joined)
		}
	}
}

func TestCommandResolutionClasses(t *testing.T) {
	tests := []struct {
		class       ResolutionClass
		wantFilter  string
		wantMaxRate string
		wantBufSize string
	}{
		{ResolutionLow, "scale=640:360:", "800k", "1600k"},
		{ResolutionMediumLow, "scale=854:480:", "1200k", "2400k"},
		{ResolutionMediumHigh, "scale=1280:720:", "2500k", "5000k"},
		{ResolutionHigh, "scale=1920:1080:", "4500k", "9000k"},
		// Unknown classes fall back to the medium-high defaults.
		{ResolutionClass("ultra"), "scale=1280:720:", "2500k", "5000k"},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			cfg := baseConfig()
			cfg.Resolution = tt.class
			args := Command(cfg, testEndpoint)
			joined := strings.Join(args, " ")

			if !strings.Contains(joined, tt.wantFilter) {
				t.Errorf("missing %q in %q", tt.wantFilter, joined)
			}
			if !containsPair(args, "-maxrate", tt.wantMaxRate) {
				t.Errorf("missing -maxrate %s", tt.wantMaxRate)
			}
			if !containsPair(args, "-bufsize", tt.wantBufSize) {
				t.Errorf("missing -bufsize %s", tt.wantBufSize)
			}
		})
	}
}

func TestCommandLoopFlag(t *testing.T) {
	cfg := baseConfig()
	cfg.Loop = true
	args := Command(cfg, testEndpoint)

	if !containsPair(args, "-stream_loop", "-1") {
		t.Error("looping config missing -stream_loop -1")
	}
	// Loop must precede the input it applies to.
	loopIdx := slices.Index(args, "-stream_loop")
	inputIdx := slices.Index(args, "-i")
	if loopIdx > inputIdx {
		t.Error("-stream_loop appears after -i")
	}
}

func TestCommandAudioGain(t *testing.T) {
	tests := []struct {
		name   string
		volume int
		muted  bool
		want   string
	}{
		{"muted wins over volume", 80, true, "volume=0"},
		{"full volume", 100, false, "volume=1"},
		{"half volume", 50, false, "volume=0.5"},
		{"zero volume", 0, false, "volume=0"},
		{"clamped above 100", 150, false, "volume=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Volume = tt.volume
			cfg.Muted = tt.muted
			if !containsPair(Command(cfg, testEndpoint), "-af", tt.want) {
				t.Errorf("want -af %s", tt.want)
			}
		})
	}
}

func TestCommandTuningConstants(t *testing.T) {
	args := Command(baseConfig(), testEndpoint)

	pairs := [][2]string{
		{"-g", "60"},
		{"-keyint_min", "60"},
		{"-c:a", "aac"},
		{"-ar", "44100"},
		{"-ac", "2"},
		{"-b:a", "128k"},
		{"-f", "flv"},
	}
	for _, p := range pairs {
		if !containsPair(args, p[0], p[1]) {
			t.Errorf("missing %s %s", p[0], p[1])
		}
	}
	if !slices.Contains(args, "-re") {
		t.Error("missing -re real-time input pacing")
	}
}

func TestParseEnums(t *testing.T) {
	if got := ParseResolutionClass("low"); got != ResolutionLow {
		t.Errorf("ParseResolutionClass(low) = %s", got)
	}
	if got := ParseResolutionClass("4k"); got != ResolutionMediumHigh {
		t.Errorf("ParseResolutionClass(4k) = %s, want medium-high fallback", got)
	}
	if got := ParseOrientation("portrait"); got != OrientationPortrait {
		t.Errorf("ParseOrientation(portrait) = %s", got)
	}
	if got := ParseOrientation("sideways"); got != OrientationLandscape {
		t.Errorf("ParseOrientation(sideways) = %s, want landscape fallback", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLevel string
		wantMsg   string
	}{
		{"simple info", "[info] Stream mapping:", "info", "Stream mapping:"},
		{"simple error", "[error] failed to open file", "error", "failed to open file"},
		{
			"component prefix with warning",
			"[flv @ 0x7f673c439fc0] [warning] Failed to update header",
			"warning",
			"[flv @ 0x7f673c439fc0] Failed to update header",
		},
		{"component without level", "[libx264 @ 0x55f] frame=100", "info", "[libx264 @ 0x55f] frame=100"},
		{"no prefix", "frame=100 fps=30", "info", "frame=100 fps=30"},
		{"empty", "", "info", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, msg := ParseLogLevel(tt.input)
			if level != tt.wantLevel || msg != tt.wantMsg {
				t.Errorf("ParseLogLevel(%q) = (%q, %q), want (%q, %q)",
					tt.input, level, msg, tt.wantLevel, tt.wantMsg)
			}
		})
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
