package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/capture/filesource"
	"github.com/MeKo-Tech/codescan/internal/capture/wscapture"
	"github.com/MeKo-Tech/codescan/internal/config"
	"github.com/MeKo-Tech/codescan/internal/event"
	"github.com/MeKo-Tech/codescan/internal/metrics"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
	"github.com/MeKo-Tech/codescan/internal/scanner"
	"github.com/MeKo-Tech/codescan/internal/scheduler"
)

const (
	sourceWebSocket = "ws"
	sourceCamera    = "camera"

	// streamSurface is the render surface the CLI binds every source to.
	streamSurface = "video-1"
)

type streamOptions struct {
	maxDetections int
	timeout       time.Duration
	watchConfig   bool
}

func newStreamCommand(a *app) *cobra.Command {
	var opts streamOptions

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Scan a live video source continuously",
		Long: `Scan frames from a video source until interrupted. A code is reported once
it has been read on several consecutive samples.

Sources:
  DIR or FILE   replay image files as a virtual camera
  ws            accept frames from a browser or phone over a websocket (/capture)
  camera        local camera (requires a build with -tags gocv)

Examples:
  codescan stream --source ./frames --max-detections 1
  codescan stream --source ws --listen-addr :8090 --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStream(cmd, a, opts)
		},
	}

	f := cmd.Flags()
	f.String("source", "camera", "video source: directory, image file, ws or camera")
	f.Float64("frame-rate", 60, "frame presentation rate driving the sampling loop")
	f.Bool("loop", false, "replay file sources forever")
	f.String("facing-mode", "environment", "camera facing mode (environment, user)")
	f.Int("device-id", 0, "camera device index")
	f.String("listen-addr", ":8090", "listen address for the websocket source")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.IntVar(&opts.maxDetections, "max-detections", 0, "exit after this many confirmed reads (0 = unlimited)")
	f.DurationVar(&opts.timeout, "timeout", 0, "give up after this long (0 = until interrupted)")
	f.BoolVar(&opts.watchConfig, "watch-config", false, "restart the scan with new thresholds when the config file changes")

	_ = a.v.BindPFlag("stream.source", f.Lookup("source"))
	_ = a.v.BindPFlag("stream.frame_rate", f.Lookup("frame-rate"))
	_ = a.v.BindPFlag("stream.loop", f.Lookup("loop"))
	_ = a.v.BindPFlag("stream.facing_mode", f.Lookup("facing-mode"))
	_ = a.v.BindPFlag("stream.device_id", f.Lookup("device-id"))
	_ = a.v.BindPFlag("capture.listen_addr", f.Lookup("listen-addr"))
	_ = a.v.BindPFlag("metrics.addr", f.Lookup("metrics-addr"))
	return cmd
}

// streamSource is a media capture plus an optional completion signal.
type streamSource struct {
	capture capture.MediaCapture
	done    <-chan struct{}
	server  *http.Server
}

func openSource(cfg *config.Config) (*streamSource, error) {
	switch cfg.Stream.Source {
	case sourceWebSocket:
		srv := wscapture.NewServer()
		return &streamSource{
			capture: srv,
			server: &http.Server{
				Addr:              cfg.Capture.ListenAddr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			},
		}, nil
	case sourceCamera:
		cam, err := newCamera(cfg.Stream.DeviceID)
		if err != nil {
			return nil, err
		}
		return &streamSource{capture: cam}, nil
	case "":
		return nil, errors.New("no stream source configured")
	default:
		src := filesource.New(afero.NewOsFs(), cfg.Stream.Source, cfg.Stream.FrameRate, cfg.Stream.Loop)
		return &streamSource{capture: src, done: src.Done()}, nil
	}
}

func runStream(cmd *cobra.Command, a *app, opts streamOptions) error {
	cfg := a.cfg
	src, err := openSource(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				slog.Error("Metrics server error", "error", err)
			}
		}()
	}
	if src.server != nil {
		go func() {
			slog.Info("Waiting for capture client", "addr", src.server.Addr, "path", "/capture")
			if err := src.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Capture server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = src.server.Shutdown(shutdownCtx)
		}()
	}

	w, err := event.NewWriter(cmd.OutOrStdout(), cfg.Output.Format)
	if err != nil {
		return err
	}

	var (
		confirmed  atomic.Int64
		lastFail   atomic.Value
		restarting atomic.Bool
		finished   = make(chan struct{}, 1)
	)
	notify := func() {
		select {
		case finished <- struct{}{}:
		default:
		}
	}
	tracker := event.Funcs{
		Detect: func(res scanerr.Result) {
			if !res.OK() {
				lastFail.Store(res.Code())
				return
			}
			if n := confirmed.Add(1); opts.maxDetections > 0 && n >= int64(opts.maxDetections) {
				notify()
			}
		},
		Stop: func() {
			if !restarting.Load() {
				notify()
			}
		},
	}

	frames := scheduler.NewFrame(cfg.Stream.FrameRate)
	defer frames.Close()

	sc, err := scanner.New(&scanner.Host{
		EnableStream: true,
		Surfaces:     capture.NewSurfaces(streamSurface),
		Capture:      src.capture,
		Scheduler:    frames,
		Sink:         event.Multi{w.Source("stream"), tracker},
	}, cfg.ToScannerConfig())
	if err != nil {
		return err
	}
	defer sc.Close()

	if opts.watchConfig {
		if err := a.loader.Watch(func(next *config.Config) {
			th := next.Thresholds()
			restarting.Store(true)
			sc.StopStreamScan()
			err := sc.StartStreamScan(streamSurface, &th)
			restarting.Store(false)
			if err != nil {
				slog.Error("Failed to restart stream scan", "error", err)
				notify()
			}
		}); err != nil {
			return fmt.Errorf("cannot watch configuration: %w", err)
		}
	}

	if err := sc.StartStreamScan(streamSurface, nil); err != nil {
		return err
	}
	slog.Info("Stream scan started", "source", cfg.Stream.Source, "session_id", sc.Session().ID())

	waitStream(ctx, src.done, finished, drainPeriod(cfg))
	sc.StopStreamScan()

	stats := sc.Session().Stats()
	slog.Info("Stream scan finished",
		"confirmed", confirmed.Load(),
		"ticks", stats.Ticks,
		"sampled", stats.Sampled,
		"rate_limited", stats.RateLimited)

	if confirmed.Load() == 0 {
		if code, ok := lastFail.Load().(scanerr.Code); ok {
			return fmt.Errorf("%s: %w", code, errScansFailed)
		}
	}
	return nil
}

// drainPeriod is how long the last frame of an exhausted source keeps being
// sampled, enough for one full confirmation run.
func drainPeriod(cfg *config.Config) time.Duration {
	th := cfg.Thresholds()
	return time.Duration(th.RequiredConsecutiveDetections+1)*th.MinSampleInterval + 100*time.Millisecond
}

func waitStream(ctx context.Context, sourceDone <-chan struct{}, finished <-chan struct{}, drain time.Duration) {
	var drained <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stream scan interrupted", "reason", context.Cause(ctx))
			return
		case <-finished:
			return
		case <-sourceDone:
			slog.Info("Stream source exhausted", "drain", drain)
			sourceDone = nil
			drained = time.After(drain)
		case <-drained:
			return
		}
	}
}
