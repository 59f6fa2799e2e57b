package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/facetone/facetone-go/cmd/scan"
	"github.com/facetone/facetone-go/cmd/stats"
	"github.com/facetone/facetone-go/cmd/watch"
	"github.com/facetone/facetone-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "facetone",
		Short: "Facetone-Go CLI",
		Long:  "Analyze the skin tone distribution of a photo collection, automatically or on demand.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		scan.Command(settings),
		watch.Command(settings),
		stats.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures the global flags shared by every subcommand.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.Input.Path, "input", "i", viper.GetString("input.path"), "Path to the photo collection root")
	rootCmd.PersistentFlags().BoolVarP(&settings.Input.Recursive, "recursive", "r", viper.GetBool("input.recursive"), "Include subdirectories")
	rootCmd.PersistentFlags().IntVarP(&settings.Analysis.Workers, "workers", "w", viper.GetInt("analysis.workers"), "Number of analysis workers")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
