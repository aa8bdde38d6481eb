package video

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videorecord_frames_captured_total",
		Help: "Frames read from the capture device.",
	})
	framesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videorecord_frames_written_total",
		Help: "Frames appended to the recording file.",
	})
	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videorecord_frames_dropped_total",
		Help: "Frames that did not reach the recording file, by reason.",
	}, []string{"reason"})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videorecord_dispatch_queue_depth",
		Help: "Events waiting for the presentation loop.",
	})
	sessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videorecord_sessions_total",
		Help: "Recording sessions opened.",
	})
	captureFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videorecord_capture_faults_total",
		Help: "Acquisition runs ended by a device failure, by kind.",
	}, []string{"kind"})
)
