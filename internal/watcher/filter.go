package watcher

import (
	"path/filepath"
	"strings"
)

// photoExtensions are the decodable image formats the pipeline accepts.
var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// IsPhotoFile reports whether a filename has a supported image extension.
func IsPhotoFile(name string) bool {
	return photoExtensions[strings.ToLower(filepath.Ext(name))]
}

// Filter decides which filenames enter the pipeline. The same filter runs
// on the initial scan and on live filesystem events, so sidecar and
// metadata files (XMP, dotfiles, editor temporaries) can never slip in
// through one path and not the other.
type Filter struct {
	patterns []string
}

// NewFilter compiles ignore patterns. Patterns are shell globs matched
// against the base filename, as in "*.xmp" or ".*".
func NewFilter(patterns []string) *Filter {
	return &Filter{patterns: patterns}
}

// Accept reports whether the path should be analyzed: it must carry a
// supported image extension and match no ignore pattern.
func (f *Filter) Accept(path string) bool {
	name := filepath.Base(path)
	if !IsPhotoFile(name) {
		return false
	}
	for _, pattern := range f.patterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return false
		}
	}
	return true
}
