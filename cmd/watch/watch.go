package watch

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/facetone/facetone-go/internal/analysis"
	"github.com/facetone/facetone-go/internal/conf"
	"github.com/facetone/facetone-go/internal/facedetect"
)

// Command creates the watch command for continuous collection analysis.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the photo collection and analyze changes",
		Long:  "Scan the collection once, then keep analyzing photos as they are added, changed or removed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.Watch(cmd.Context(), settings, facedetect.NewHeuristicFactory())
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

// setupFlags configures flags specific to the watch command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().DurationVar(&settings.Watcher.Grace, "grace", viper.GetDuration("watcher.grace"), "Creation grace window suppressing follow-up writes")
	cmd.Flags().DurationVar(&settings.Watcher.Cooldown, "cooldown", viper.GetDuration("watcher.cooldown"), "Per-path cooldown between accepted events")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	_ = viper.BindPFlags(cmd.Flags())
}
