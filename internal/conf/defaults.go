// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Facetone-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "facetone.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("input.path", "photos/")
	viper.SetDefault("input.recursive", true)

	viper.SetDefault("analysis.workers", 3)
	viper.SetDefault("analysis.pointcloudcap", 50000)
	viper.SetDefault("analysis.thumbnail.maxdimension", 256)

	viper.SetDefault("watcher.grace", 2*time.Second)
	viper.SetDefault("watcher.cooldown", 1*time.Second)
	viper.SetDefault("watcher.ignore", []string{
		".DS_Store", "Thumbs.db", "desktop.ini", "._*", ".*",
	})

	viper.SetDefault("cache.retention", 30*24*time.Hour)
	viper.SetDefault("cache.memoryttl", 10*time.Minute)

	viper.SetDefault("retention.ondelete", string(RetainOnDelete))

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "localhost:8090")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "facetone.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "facetone")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "facetone")
}

// ApplyDefaultBuckets fills in the reference bucket boundaries for any
// channel the configuration leaves empty. The first hue bucket wraps the
// 360/0 boundary so "very-low" covers both sides of red.
func ApplyDefaultBuckets(b *BucketConfig) {
	if len(b.Hue) == 0 {
		b.Hue = []HueBucket{
			{Name: "very-low", Ranges: [][2]float64{{0, 10}, {350, 360}}},
			{Name: "low", Ranges: [][2]float64{{10, 20}}},
			{Name: "mid", Ranges: [][2]float64{{20, 30}}},
			{Name: "high", Ranges: [][2]float64{{30, 40}}},
			{Name: "very-high", Ranges: [][2]float64{{40, 60}}},
			{Name: "out-of-range", Ranges: [][2]float64{{60, 350}}},
		}
	}
	if len(b.Lightness) == 0 {
		b.Lightness = []Bucket{
			{Name: "dark", Min: 0, Max: 0.25},
			{Name: "mid", Min: 0.25, Max: 0.7},
			{Name: "light", Min: 0.7, Max: 1.0},
		}
	}
	if len(b.Saturation) == 0 {
		b.Saturation = []Bucket{
			{Name: "very-low", Min: 0, Max: 0.1},
			{Name: "low", Min: 0.1, Max: 0.25},
			{Name: "mid", Min: 0.25, Max: 0.45},
			{Name: "high", Min: 0.45, Max: 0.7},
			{Name: "very-high", Min: 0.7, Max: 1.0},
		}
	}
}
