package datastore

import (
	"fmt"
	"path/filepath"

	"github.com/facetone/facetone-go/internal/conf"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must not be empty")
	}
	return nil
}

// Open sets up the SQLite database connection and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	dbPath := store.Settings.Output.SQLite.Path
	if dbPath != ":memory:" && !filepath.IsAbs(dbPath) {
		dir, fileName := filepath.Split(dbPath)
		dbPath = filepath.Join(conf.GetBasePath(dir), fileName)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: createGormLogger(store.Settings.Debug)})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", dbPath)
}

// Close is a no-op for SQLite; gorm manages the underlying pool.
func (store *SQLiteStore) Close() error {
	return nil
}
