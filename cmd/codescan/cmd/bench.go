package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/benchmark"
	"github.com/MeKo-Tech/codescan/internal/codec"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

func newBenchCommand(a *app) *cobra.Command {
	var iterations int

	cmd := &cobra.Command{
		Use:   "bench FILE...",
		Short: "Measure detection latency on image files",
		Long: `Run detection repeatedly on each file and report mean, standard deviation,
median and 95th percentile latency.

Examples:
  codescan bench testdata/images/*.png --iterations 50`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("no input files provided")
			}
			if iterations < 1 {
				return fmt.Errorf("invalid iteration count: %d (must be positive)", iterations)
			}

			p, err := pipeline.NewBuilder().WithConfig(a.cfg.ToPipelineConfig()).Build()
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}

			fs := afero.NewOsFs()
			suite := benchmark.NewSuite()
			for _, path := range args {
				data, _, err := codec.ReadFile(fs, path)
				if err != nil {
					return err
				}
				suite.Add(filepath.Base(path), func() scanerr.Result { return p.DetectImage(data) })
			}
			suite.RunAll(iterations)
			suite.Print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "n", 20, "detections per file")
	return cmd
}
