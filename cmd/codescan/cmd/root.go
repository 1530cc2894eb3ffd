// Package cmd implements the codescan command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/codescan/internal/config"
	"github.com/MeKo-Tech/codescan/internal/version"
)

// app carries the per-invocation configuration state shared by subcommands.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree with its own viper instance, so
// tests can run several invocations in one process.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	a.loader = config.NewLoaderWithViper(a.v)

	root := &cobra.Command{
		Use:   "codescan",
		Short: "Barcode and QR code scanner for still images and live video",
		Long: `codescan extracts linear barcodes and 2-D matrix codes from still images
and from continuous video sources.

Supported symbologies include EAN-13, UPC-A, EAN-8, UPC-E, Code 128, Code 39,
ITF, Codabar, QR Code, Data Matrix and Aztec.

Examples:
  codescan image label.png
  codescan image *.jpg --format json
  codescan stream --source ./frames --max-detections 1
  codescan stream --source ws --listen-addr :8090`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), a.cfg))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $HOME, $XDG_CONFIG_HOME/codescan, /etc/codescan)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.StringP("format", "f", "text", "event output format (text, json, yaml)")
	pf.StringSlice("strategy", nil, "ordered decoder identifiers (default: all linear formats, then matrix formats)")
	pf.Bool("try-harder", false, "spend more time per decoder")
	pf.Int("min-dimension", 0, "reject frames with a side shorter than this")

	// Bind flags to viper
	_ = a.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("output.format", pf.Lookup("format"))
	_ = a.v.BindPFlag("decode.strategy", pf.Lookup("strategy"))
	_ = a.v.BindPFlag("decode.try_harder", pf.Lookup("try-harder"))
	_ = a.v.BindPFlag("scan.min_dimension", pf.Lookup("min-dimension"))

	root.AddCommand(
		newImageCommand(a),
		newStreamCommand(a),
		newFormatsCommand(),
		newConfigCommand(a),
		newBenchCommand(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// errScansFailed marks runs where at least one scan reported a failure code.
var errScansFailed = errors.New("one or more scans failed")

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return ExecuteContext(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// ExecuteContext runs the command line with explicit arguments and streams.
// Exit codes: 0 success, 1 usage or runtime error, 2 a scan reported a
// failure code.
func ExecuteContext(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errScansFailed):
		return 2
	default:
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}
