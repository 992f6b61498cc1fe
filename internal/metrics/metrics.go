// Package metrics exposes Prometheus collectors for the encoder
// lifecycle and upload handling.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveStreams tracks the number of live encoder processes.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "restreamd",
		Name:      "active_streams",
		Help:      "Number of currently running encoder processes.",
	})

	// StreamStarts counts successful encoder starts.
	StreamStarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "restreamd",
		Name:      "stream_starts_total",
		Help:      "Total number of encoder processes started.",
	})

	// StreamStops counts encoder terminations by reason: operator
	// requested, spontaneous, or replaced by a restart.
	StreamStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "restreamd",
		Name:      "stream_stops_total",
		Help:      "Total number of encoder terminations.",
	}, []string{"reason"})

	// StreamCrashes counts spontaneous non-zero encoder exits.
	StreamCrashes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "restreamd",
		Name:      "stream_crashes_total",
		Help:      "Total number of encoder processes that exited unexpectedly with an error.",
	})

	// UploadBytes counts bytes written by the upload endpoint.
	UploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "restreamd",
		Name:      "upload_bytes_total",
		Help:      "Total bytes accepted by the video upload endpoint.",
	})

	// FilesReclaimed counts uploads deleted by the deferred reclaim.
	FilesReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "restreamd",
		Name:      "files_reclaimed_total",
		Help:      "Total abandoned upload files reclaimed after the grace window.",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
