// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesCapturedTotal counts frames appended to a capture file, by device
	FramesCapturedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcapture_frames_captured_total",
			Help: "Total number of frames captured and written",
		},
		[]string{"device"},
	)

	// FramesDroppedTotal counts reads that produced no frame, by device and reason
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcapture_frames_dropped_total",
			Help: "Total number of reads that timed out or failed transiently",
		},
		[]string{"device", "reason"},
	)

	// FramesTruncatedTotal counts frames cut short by the snapshot length, by device
	FramesTruncatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcapture_frames_truncated_total",
			Help: "Total number of captured frames longer than the snapshot length",
		},
		[]string{"device"},
	)

	// BytesWrittenTotal counts payload bytes written to capture files
	BytesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcapture_bytes_written_total",
			Help: "Total number of captured payload bytes written",
		},
		[]string{"device"},
	)

	// SessionState tracks the current session state (one-hot by state label)
	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pcapture_session_state",
			Help: "Current capture session state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	// AppendLatencySeconds measures capture file append latency
	AppendLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pcapture_append_latency_seconds",
			Help:    "Latency of capture file appends in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
	)
)

// Drop reasons used as the "reason" label.
const (
	DropReasonTimeout = "timeout"
)

// SetSessionState marks state as active and every other known state as inactive.
func SetSessionState(state string, known []string) {
	for _, s := range known {
		if s == state {
			SessionState.WithLabelValues(s).Set(1)
		} else {
			SessionState.WithLabelValues(s).Set(0)
		}
	}
}
