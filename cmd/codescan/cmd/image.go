package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/codescan/internal/event"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/still"
)

func newImageCommand(a *app) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "image FILE...",
		Short: "Scan still images for a barcode or QR code",
		Long: `Scan one or more image files. Every file produces a start event, one
detect event carrying the decoded text or an error code, and a stop event.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  codescan image label.png
  codescan image *.jpg --format json --workers 4`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("no input files provided")
			}
			if workers < 1 {
				return fmt.Errorf("invalid worker count: %d (must be positive)", workers)
			}

			p, err := pipeline.NewBuilder().WithConfig(a.cfg.ToPipelineConfig()).Build()
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}
			w, err := event.NewWriter(cmd.OutOrStdout(), a.cfg.Output.Format)
			if err != nil {
				return err
			}

			fs := afero.NewOsFs()
			var failed atomic.Int32

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(workers)
			for _, path := range args {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					res := still.New(p, w.Source(path)).ScanFile(fs, path)
					if !res.OK() {
						failed.Add(1)
						slog.Debug("Scan failed", "file", path, "code", res.Code())
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			slog.Info("Image scan completed", "files", len(args), "failed", failed.Load())
			if failed.Load() > 0 {
				return fmt.Errorf("%d of %d: %w", failed.Load(), len(args), errScansFailed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "number of files scanned concurrently")
	return cmd
}
