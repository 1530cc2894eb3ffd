// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan modes.
const (
	ModeImage  = "image"
	ModeStream = "stream"
)

// Stream tick outcomes.
const (
	TickSampled     = "sampled"
	TickRateLimited = "rate_limited"
	TickNoFrame     = "no_frame"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codescan_scans_total",
			Help: "Total number of detections by mode and outcome",
		},
		[]string{"mode", "status"}, // status: success or an error code
	)

	detectDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codescan_detect_duration_seconds",
			Help:    "Time spent in a single detection",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"mode"},
	)

	candidatesTried = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codescan_candidates_tried_total",
			Help: "Preprocessed candidates handed to the decode cascade",
		},
		[]string{"kind"}, // kind: resized, cropped, full
	)

	streamTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codescan_stream_ticks_total",
			Help: "Stream sampling ticks by outcome",
		},
		[]string{"outcome"},
	)

	streamConfirmations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codescan_stream_confirmations_total",
			Help: "Stream reads confirmed by consecutive identical detections",
		},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codescan_stream_sessions_active",
			Help: "Stream sessions currently holding a capture resource",
		},
	)

	captureFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codescan_capture_frames_total",
			Help: "Frames received by network capture sources",
		},
		[]string{"result"}, // result: accepted, replaced, invalid
	)
)

// ObserveDetection records one finished detection.
func ObserveDetection(mode, status string, d time.Duration) {
	scansTotal.WithLabelValues(mode, status).Inc()
	detectDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// CandidateTried counts a candidate handed to the decoders.
func CandidateTried(kind string) { candidatesTried.WithLabelValues(kind).Inc() }

// StreamTick counts a sampling tick.
func StreamTick(outcome string) { streamTicks.WithLabelValues(outcome).Inc() }

// StreamConfirmed counts a confirmed stream read.
func StreamConfirmed() { streamConfirmations.Inc() }

// SessionStreaming adjusts the active session gauge.
func SessionStreaming(active bool) {
	if active {
		sessionsActive.Inc()
		return
	}
	sessionsActive.Dec()
}

// CaptureFrame counts a frame received by a network capture source.
func CaptureFrame(result string) { captureFrames.WithLabelValues(result).Inc() }

// Router returns a router serving /metrics.
func Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics server shutdown failed", "error", err)
		}
	}()

	slog.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
