package stats

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facetone/facetone-go/internal/analysis"
	"github.com/facetone/facetone-go/internal/conf"
)

// Command creates the stats command, printing the aggregate view over all
// analyzed photos under a path prefix.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [prefix]",
		Short: "Show aggregate analysis statistics",
		Long:  "Print photo, analysis and detection counts plus mean HSL values for all photos under a path prefix.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := settings.Input.Path
			if len(args) == 1 {
				prefix = args[0]
			}

			view, err := analysis.Stats(settings, prefix)
			if err != nil {
				return err
			}

			fmt.Printf("Photos:      %d\n", view.PhotoCount)
			fmt.Printf("Analyzed:    %d\n", view.AnalyzedCount)
			fmt.Printf("With face:   %d\n", view.DetectedCount)
			if view.DetectedCount > 0 {
				fmt.Printf("Mean hue:        %.2f\n", view.HueMean)
				fmt.Printf("Mean saturation: %.3f\n", view.SaturationMean)
				fmt.Printf("Mean lightness:  %.3f\n", view.LightnessMean)
			}
			return nil
		},
	}
	return cmd
}
