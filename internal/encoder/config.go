// Package encoder builds FFmpeg argument vectors for publishing an
// uploaded video file to an RTMP destination. Argument construction is
// a pure function of the stream configuration so it can be unit tested
// without spawning anything.
package encoder

// ResolutionClass selects the output geometry and bitrate profile.
type ResolutionClass string

// Resolution classes. Unknown values fall back to ResolutionMediumHigh.
const (
	ResolutionLow        ResolutionClass = "low"         // 640x360
	ResolutionMediumLow  ResolutionClass = "medium-low"  // 854x480
	ResolutionMediumHigh ResolutionClass = "medium-high" // 1280x720 (default)
	ResolutionHigh       ResolutionClass = "high"        // 1920x1080
)

// Orientation selects the geometry transform applied to the source.
type Orientation string

// Orientation modes. Unknown values fall back to OrientationLandscape.
const (
	OrientationLandscape Orientation = "landscape" // class geometry (default)
	OrientationPortrait  Orientation = "portrait"  // fixed 720x1280 canvas
)

// Config is an immutable snapshot of a stream's encoder settings,
// materialized from the persisted stream record on every start request.
type Config struct {
	StreamID    int64
	SourcePath  string
	StreamKey   string
	Resolution  ResolutionClass
	Orientation Orientation
	Loop        bool
	Volume      int // 0-100, linear gain
	Muted       bool
}

// profile holds the per-class encoder targets.
type profile struct {
	Width   int
	Height  int
	MaxRate string
	BufSize string
}

var profiles = map[ResolutionClass]profile{
	ResolutionLow:        {Width: 640, Height: 360, MaxRate: "800k", BufSize: "1600k"},
	ResolutionMediumLow:  {Width: 854, Height: 480, MaxRate: "1200k", BufSize: "2400k"},
	ResolutionMediumHigh: {Width: 1280, Height: 720, MaxRate: "2500k", BufSize: "5000k"},
	ResolutionHigh:       {Width: 1920, Height: 1080, MaxRate: "4500k", BufSize: "9000k"},
}

// ParseResolutionClass validates a resolution class string, falling back
// to the medium-high default for unknown values.
func ParseResolutionClass(s string) ResolutionClass {
	switch ResolutionClass(s) {
	case ResolutionLow, ResolutionMediumLow, ResolutionMediumHigh, ResolutionHigh:
		return ResolutionClass(s)
	default:
		return ResolutionMediumHigh
	}
}

// ParseOrientation validates an orientation string, falling back to
// landscape for unknown values.
func ParseOrientation(s string) Orientation {
	switch Orientation(s) {
	case OrientationLandscape, OrientationPortrait:
		return Orientation(s)
	default:
		return OrientationLandscape
	}
}

// classProfile resolves the profile for a class, applying the default
// for unrecognized classes.
func classProfile(class ResolutionClass) profile {
	if p, ok := profiles[class]; ok {
		return p
	}
	return profiles[ResolutionMediumHigh]
}
