// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/facetone/facetone-go/internal/errors"
)

// OS name constants for runtime.GOOS comparisons.
const (
	osLinux   = "linux"
	osWindows = "windows"
)

// GetDefaultConfigPaths returns a list of default configuration paths for the
// current operating system, based on standard conventions for storing
// application configuration files.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Roaming", "facetone-go"),
			exeDir,
		}
	case osLinux:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "facetone-go"),
			"/etc/facetone-go",
			exeDir,
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "facetone-go"),
			exeDir,
		}
	}

	return configPaths, nil
}

// GetBasePath expands a possibly relative path against the current working
// directory and ensures the directory exists.
func GetBasePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	abs := filepath.Join(wd, path)
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return path
	}
	return abs
}

// TestSettings returns a settings instance with all defaults applied,
// suitable for package tests that need a runnable configuration.
func TestSettings() *Settings {
	s := &Settings{
		Debug: true,
	}
	s.Main.Name = "facetone-test"
	s.Input.Recursive = true
	s.Analysis.Workers = 2
	s.Analysis.PointCloudCap = 50000
	s.Analysis.Thumbnail.MaxDimension = 64
	s.Watcher.Grace = 2 * time.Second
	s.Watcher.Cooldown = 1 * time.Second
	s.Watcher.Ignore = []string{".DS_Store", "Thumbs.db", "desktop.ini", "._*", ".*"}
	s.Cache.Retention = 30 * 24 * time.Hour
	s.Cache.MemoryTTL = 10 * time.Minute
	s.Retention.OnDelete = RetainOnDelete
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = ":memory:"
	ApplyDefaultBuckets(&s.Analysis.Buckets)
	return s
}
