// model.go this code defines the data model for the application
package datastore

import "time"

// Photo represents one observed file in the collection. The absolute path
// is the identity; rows are created on first observation and updated when
// the file's modification time changes. Removal from the filesystem sets
// Removed rather than deleting the row, so history retention stays a policy
// decision.
type Photo struct {
	ID        uint   `gorm:"primaryKey"`
	Path      string `gorm:"uniqueIndex;not null"`
	ModTime   time.Time
	Size      int64
	Removed   bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AnalysisResult is the most-recent-wins analysis record for one photo.
// Saving a new result for a path replaces any prior row; results never
// accumulate. The point cloud is the bounded, serialized HSL triple array.
type AnalysisResult struct {
	ID         uint   `gorm:"primaryKey"`
	Path       string `gorm:"uniqueIndex;not null"`
	Success    bool   // false when the capability found no face
	PixelCount int    // analyzable pixels before downsampling

	PointCloud []byte // serialized HSL triples, bounded by the sampler cap

	HueMean          float64
	HueStdDev        float64
	SaturationMean   float64
	SaturationStdDev float64
	LightnessMean    float64
	LightnessStdDev  float64

	// Bucket percentages as JSON, shaped by the configured boundaries.
	Distribution []byte

	AnalyzedAt time.Time `gorm:"index"`
}

// CachedArtifact is a derived binary artifact (thumbnail or point cloud)
// keyed by photo path and kind. SourceModTime snapshots the file's
// modification time at generation; validity is always the equality of that
// snapshot with the file's current mtime, never mere presence.
type CachedArtifact struct {
	ID            uint   `gorm:"primaryKey"`
	Path          string `gorm:"uniqueIndex:idx_artifacts_path_kind;not null"`
	Kind          string `gorm:"uniqueIndex:idx_artifacts_path_kind;not null"`
	SourceModTime time.Time
	Payload       []byte
	Width         int
	Height        int
	CreatedAt     time.Time
	LastAccessed  time.Time `gorm:"index"`
}

// Artifact kind identifiers.
const (
	ArtifactThumbnail  = "thumbnail"
	ArtifactPointCloud = "pointcloud"
)

// CollectionStats is the on-demand aggregate view over a folder's analysis
// results. It is computed by query, never stored.
type CollectionStats struct {
	PhotoCount     int64
	AnalyzedCount  int64
	DetectedCount  int64
	HueMean        float64
	SaturationMean float64
	LightnessMean  float64
}
