package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/barcode"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List decoder identifiers and the default decode strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			def := barcode.DefaultStrategy()
			_, _ = fmt.Fprintln(out, "Decoders:")
			for _, id := range barcode.IDs() {
				mark := ""
				if slices.Contains(def, id) {
					mark = " (default)"
				}
				_, _ = fmt.Fprintf(out, "  %s%s\n", id, mark)
			}
			_, _ = fmt.Fprintf(out, "Default strategy: %s\n", strings.Join(def, ", "))
			return nil
		},
	}
}
