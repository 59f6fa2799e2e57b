// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"time"

	"github.com/facetone/facetone-go/internal/conf"
	"github.com/facetone/facetone-go/internal/errors"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// operations the pipeline needs.
type Interface interface {
	Open() error
	Close() error

	// Photos
	SavePhoto(photo *Photo) error
	GetPhoto(path string) (*Photo, error)
	MarkPhotoRemoved(path string) error

	// Analysis results (upsert-by-path, never accumulate)
	SaveResult(result *AnalysisResult) error
	GetResult(path string) (*AnalysisResult, error)
	DeleteResult(path string) error
	CollectionStats(pathPrefix string) (CollectionStats, error)

	// Derived artifacts
	GetArtifact(path, kind string) (*CachedArtifact, error)
	SaveArtifact(artifact *CachedArtifact) error
	TouchArtifact(path, kind string, accessedAt time.Time) error
	DeleteArtifacts(path string) error
	DeleteArtifactsNotAccessedSince(cutoff time.Time) (int64, error)
	ClearArtifacts() error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// performAutoMigration migrates all model tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Photo{}, &AnalysisResult{}, &CachedArtifact{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Context("operation", "auto-migration").
			Build()
	}
	if debug {
		fmt.Printf("%s database initialized: %s\n", dbType, connectionInfo)
	}
	return nil
}

// SavePhoto upserts the photo row identified by its path.
func (ds *DataStore) SavePhoto(photo *Photo) error {
	var existing Photo
	err := ds.DB.Where("path = ?", photo.Path).First(&existing).Error
	switch {
	case err == nil:
		photo.ID = existing.ID
		photo.CreatedAt = existing.CreatedAt
		if err := ds.DB.Save(photo).Error; err != nil {
			return fmt.Errorf("updating photo %s: %w", photo.Path, err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := ds.DB.Create(photo).Error; err != nil {
			return fmt.Errorf("creating photo %s: %w", photo.Path, err)
		}
		return nil
	default:
		return fmt.Errorf("looking up photo %s: %w", photo.Path, err)
	}
}

// GetPhoto retrieves a photo by path. A missing row returns (nil, nil).
func (ds *DataStore) GetPhoto(path string) (*Photo, error) {
	var photo Photo
	if err := ds.DB.Where("path = ?", path).First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting photo %s: %w", path, err)
	}
	return &photo, nil
}

// MarkPhotoRemoved flags a photo as gone from the filesystem without
// deleting its history.
func (ds *DataStore) MarkPhotoRemoved(path string) error {
	if err := ds.DB.Model(&Photo{}).Where("path = ?", path).Update("removed", true).Error; err != nil {
		return fmt.Errorf("marking photo %s removed: %w", path, err)
	}
	return nil
}

// SaveResult stores the analysis result for a path, replacing any prior
// result in the same transaction so a reader never sees two rows.
func (ds *DataStore) SaveResult(result *AnalysisResult) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("path = ?", result.Path).Delete(&AnalysisResult{}).Error; err != nil {
			return fmt.Errorf("removing prior result for %s: %w", result.Path, err)
		}
		if err := tx.Create(result).Error; err != nil {
			return fmt.Errorf("saving result for %s: %w", result.Path, err)
		}
		return nil
	})
}

// GetResult retrieves the analysis result for a path. A missing row returns
// (nil, nil).
func (ds *DataStore) GetResult(path string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := ds.DB.Where("path = ?", path).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting result for %s: %w", path, err)
	}
	return &result, nil
}

// DeleteResult removes the analysis result for a path.
func (ds *DataStore) DeleteResult(path string) error {
	if err := ds.DB.Where("path = ?", path).Delete(&AnalysisResult{}).Error; err != nil {
		return fmt.Errorf("deleting result for %s: %w", path, err)
	}
	return nil
}

// CollectionStats aggregates results for all photos under a path prefix.
// The view is computed per call; nothing accumulates across invocations.
func (ds *DataStore) CollectionStats(pathPrefix string) (CollectionStats, error) {
	var stats CollectionStats
	like := pathPrefix + "%"

	if err := ds.DB.Model(&Photo{}).
		Where("path LIKE ? AND removed = ?", like, false).
		Count(&stats.PhotoCount).Error; err != nil {
		return stats, fmt.Errorf("counting photos under %s: %w", pathPrefix, err)
	}

	if err := ds.DB.Model(&AnalysisResult{}).
		Where("path LIKE ?", like).
		Count(&stats.AnalyzedCount).Error; err != nil {
		return stats, fmt.Errorf("counting results under %s: %w", pathPrefix, err)
	}

	if err := ds.DB.Model(&AnalysisResult{}).
		Where("path LIKE ? AND success = ?", like, true).
		Count(&stats.DetectedCount).Error; err != nil {
		return stats, fmt.Errorf("counting detections under %s: %w", pathPrefix, err)
	}

	if stats.DetectedCount == 0 {
		return stats, nil
	}

	row := struct {
		HueMean        float64
		SaturationMean float64
		LightnessMean  float64
	}{}
	err := ds.DB.Model(&AnalysisResult{}).
		Select("AVG(hue_mean) as hue_mean, AVG(saturation_mean) as saturation_mean, AVG(lightness_mean) as lightness_mean").
		Where("path LIKE ? AND success = ?", like, true).
		Scan(&row).Error
	if err != nil {
		return stats, fmt.Errorf("averaging results under %s: %w", pathPrefix, err)
	}
	stats.HueMean = row.HueMean
	stats.SaturationMean = row.SaturationMean
	stats.LightnessMean = row.LightnessMean
	return stats, nil
}

// GetArtifact retrieves the stored artifact for a path and kind. A missing
// row returns (nil, nil); validity against the file's current mtime is the
// caller's concern.
func (ds *DataStore) GetArtifact(path, kind string) (*CachedArtifact, error) {
	var artifact CachedArtifact
	if err := ds.DB.Where("path = ? AND kind = ?", path, kind).First(&artifact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting %s artifact for %s: %w", kind, path, err)
	}
	return &artifact, nil
}

// SaveArtifact upserts the artifact for its path and kind, replacing any
// prior payload. Last-writer-wins is acceptable because payloads are
// derivable from the same source file.
func (ds *DataStore) SaveArtifact(artifact *CachedArtifact) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("path = ? AND kind = ?", artifact.Path, artifact.Kind).
			Delete(&CachedArtifact{}).Error; err != nil {
			return fmt.Errorf("removing prior %s artifact for %s: %w", artifact.Kind, artifact.Path, err)
		}
		if err := tx.Create(artifact).Error; err != nil {
			return fmt.Errorf("saving %s artifact for %s: %w", artifact.Kind, artifact.Path, err)
		}
		return nil
	})
}

// TouchArtifact updates the last-access time for LRU accounting without
// altering the payload.
func (ds *DataStore) TouchArtifact(path, kind string, accessedAt time.Time) error {
	if err := ds.DB.Model(&CachedArtifact{}).
		Where("path = ? AND kind = ?", path, kind).
		Update("last_accessed", accessedAt).Error; err != nil {
		return fmt.Errorf("touching %s artifact for %s: %w", kind, path, err)
	}
	return nil
}

// DeleteArtifacts removes all artifacts for a path.
func (ds *DataStore) DeleteArtifacts(path string) error {
	if err := ds.DB.Where("path = ?", path).Delete(&CachedArtifact{}).Error; err != nil {
		return fmt.Errorf("deleting artifacts for %s: %w", path, err)
	}
	return nil
}

// DeleteArtifactsNotAccessedSince removes artifacts whose last access is
// older than the cutoff and reports how many were evicted.
func (ds *DataStore) DeleteArtifactsNotAccessedSince(cutoff time.Time) (int64, error) {
	res := ds.DB.Where("last_accessed < ?", cutoff).Delete(&CachedArtifact{})
	if res.Error != nil {
		return 0, fmt.Errorf("evicting artifacts older than %v: %w", cutoff, res.Error)
	}
	return res.RowsAffected, nil
}

// ClearArtifacts removes every cached artifact.
func (ds *DataStore) ClearArtifacts() error {
	if err := ds.DB.Where("1 = 1").Delete(&CachedArtifact{}).Error; err != nil {
		return fmt.Errorf("clearing artifact cache: %w", err)
	}
	return nil
}
