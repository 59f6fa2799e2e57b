// config.go: This file contains the configuration for the facetone-go application.
// It defines the settings struct and functions to load and save the settings.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // path to log file
	Rotation RotationType // rotation type
	MaxSize  int64        // max size in bytes for RotationSize
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// MainSettings contains main settings for the application.
type MainSettings struct {
	Name string    // name of the node
	Log  LogConfig // main application log settings
}

// InputSettings contains settings for the observed photo collection.
type InputSettings struct {
	Path      string // path to the photo collection root
	Recursive bool   // true to scan and watch subdirectories
}

// Bucket is a half-open value range [Min, Max) with a display name.
type Bucket struct {
	Name string  // bucket label, e.g. "low"
	Min  float64 // inclusive lower bound
	Max  float64 // exclusive upper bound
}

// HueBucket is a named bucket over hue degrees. A bucket may span several
// disjoint ranges so the reference bucket can wrap the 360/0 boundary.
type HueBucket struct {
	Name   string       // bucket label
	Ranges [][2]float64 // half-open degree ranges [lo, hi)
}

// BucketConfig defines the distribution buckets for all three channels.
// Boundaries are configuration, not hardcoded business logic.
type BucketConfig struct {
	Hue        []HueBucket // six hue buckets by default
	Lightness  []Bucket    // three lightness buckets by default
	Saturation []Bucket    // five saturation buckets by default
}

// AnalysisSettings contains settings for the analysis pipeline.
type AnalysisSettings struct {
	Workers       int          // number of analysis workers
	PointCloudCap int          // maximum number of HSL points kept per photo
	Buckets       BucketConfig // distribution bucket boundaries
	Thumbnail     struct {
		MaxDimension int // longest edge of generated thumbnails in pixels
	}
}

// WatcherSettings contains settings for the filesystem change watcher.
type WatcherSettings struct {
	Grace    time.Duration // creation grace window suppressing follow-up modifies
	Cooldown time.Duration // per-path cooldown between accepted events
	Ignore   []string      // filename patterns excluded from all traversal paths
}

// CacheSettings contains settings for the derived artifact cache.
type CacheSettings struct {
	Retention time.Duration // evict artifacts not accessed within this window
	MemoryTTL time.Duration // TTL of the in-memory hot layer
}

// TelemetrySettings contains the Prometheus metrics endpoint settings.
type TelemetrySettings struct {
	Enabled bool   // true to expose a metrics HTTP endpoint in watch mode
	Listen  string // listen address and port of the metrics endpoint
}

// RetentionOnDelete selects what happens to analysis results when the
// source file disappears from the filesystem.
type RetentionOnDelete string

const (
	RetainOnDelete RetentionOnDelete = "retain"
	PurgeOnDelete  RetentionOnDelete = "purge"
)

// RetentionSettings contains result retention policy.
type RetentionSettings struct {
	OnDelete RetentionOnDelete // retain or purge results for deleted photos
}

// OutputSettings contains database output settings.
type OutputSettings struct {
	SQLite struct {
		Enabled bool   // true to enable SQLite output
		Path    string // path to SQLite database
	}
	MySQL struct {
		Enabled  bool   // true to enable MySQL output
		Username string // MySQL username
		Password string // MySQL password
		Host     string // MySQL host
		Port     string // MySQL port
		Database string // MySQL database name
	}
}

// Settings contains all runtime settings of the application.
type Settings struct {
	Debug bool // true to enable debug mode

	Main      MainSettings
	Input     InputSettings
	Analysis  AnalysisSettings
	Watcher   WatcherSettings
	Cache     CacheSettings
	Retention RetentionSettings
	Telemetry TelemetrySettings
	Output    OutputSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the global settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Bucket boundaries are structured config; when the file omits them the
	// reference boundaries apply.
	ApplyDefaultBuckets(&settings.Analysis.Buckets)

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file found, create one from the defaults.
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the current default settings to a new config file.
func createDefaultConfig(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	defaults := viper.AllSettings()
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("error marshaling default settings: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	log.Printf("Created default config file at %s", configFile)
	viper.SetConfigFile(configFile)
	return viper.ReadInConfig()
}

// Setting returns the current global settings instance, loading it on first use.
func Setting() *Settings {
	settingsMutex.RLock()
	loaded := settingsInstance
	settingsMutex.RUnlock()
	if loaded != nil {
		return loaded
	}
	if _, err := Load(); err != nil {
		log.Fatalf("Error loading settings: %v", err)
	}
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SetTestSettings installs a settings instance for tests.
func SetTestSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}
