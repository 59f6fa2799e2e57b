package scan

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facetone/facetone-go/internal/analysis"
	"github.com/facetone/facetone-go/internal/conf"
	"github.com/facetone/facetone-go/internal/facedetect"
)

// Command creates the scan command for one-shot collection analysis.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Analyze all photos in a directory once",
		Long:  "Walk the photo collection, analyze every new or changed photo and exit.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				settings.Input.Path = args[0]
			}

			counters, err := analysis.Scan(cmd.Context(), settings, facedetect.NewHeuristicFactory())
			if err != nil {
				return err
			}

			fmt.Printf("Scan of %s finished: %d analyzed, %d failed, %d skipped\n",
				settings.Input.Path, counters.Completed, counters.Failed, counters.Skipped)
			return nil
		},
	}
	return cmd
}
