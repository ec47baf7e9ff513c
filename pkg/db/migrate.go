package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

const (
	// DatabaseName identifies the store. It is also the default file name stem.
	DatabaseName = "nikki"
	// TargetSchemaVersion is the highest schema version this version of the code supports.
	// Version 1 holds the entries partition and its indexes, version 2 adds the
	// weekly and monthly summary partitions.
	TargetSchemaVersion int64 = 2
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// GetSchemaVersion returns the applied schema version. A database that has
// never been migrated reports version 0.
func GetSchemaVersion(db *sql.DB) (int64, error) {
	m, err := newMigrate(db)
	if err != nil {
		return 0, err
	}
	// m is not closed: closing it would close the caller's db.

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get database version: %w", err)
	}
	if dirty {
		return int64(version), fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}
	return int64(version), nil
}

// LatestSchemaVersion returns the highest version shipped in the embedded migrations.
func LatestSchemaVersion() (int64, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	latest, err := getLatestVersion(src)
	if err != nil {
		return 0, fmt.Errorf("failed to determine latest version: %w", err)
	}
	return int64(latest), nil
}

// UpgradeDB applies the migrations needed to bring the database up to
// appTargetSchemaVersion. Every migration only creates missing tables and
// indexes, so existing data survives an upgrade.
// dbIdentifierForLog is used for logging and error messages only.
func UpgradeDB(logger *zap.Logger, db *sql.DB, dbIdentifierForLog string, appTargetSchemaVersion int64) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	latest, err := LatestSchemaVersion()
	if err != nil {
		return err
	}
	if appTargetSchemaVersion < 1 || appTargetSchemaVersion > latest {
		return fmt.Errorf("target schema version %d is not available (latest is %d)", appTargetSchemaVersion, latest)
	}

	currentDBVersion, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	switch {
	case currentDBVersion == appTargetSchemaVersion:
		logger.Debug("schema is up to date",
			zap.String("db", dbIdentifierForLog),
			zap.Int64("version", currentDBVersion))
		return nil
	case currentDBVersion > appTargetSchemaVersion:
		return fmt.Errorf("database '%s' has schema version %d, which is newer than application's target schema version %d. Please upgrade the application", dbIdentifierForLog, currentDBVersion, appTargetSchemaVersion)
	}

	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	logger.Info("upgrading schema",
		zap.String("db", dbIdentifierForLog),
		zap.Int64("from", currentDBVersion),
		zap.Int64("to", appTargetSchemaVersion))

	if err := m.Migrate(uint(appTargetSchemaVersion)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate database '%s' from version %d to %d: %w", dbIdentifierForLog, currentDBVersion, appTargetSchemaVersion, err)
	}
	return nil
}

// newMigrate creates a new migrate instance for the given database.
func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// getLatestVersion returns the highest version number available in the source.
func getLatestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}

	latestVersion := version
	for {
		nextVersion, err := src.Next(latestVersion)
		if err != nil {
			// Next fails once there are no more migrations.
			break
		}
		latestVersion = nextVersion
	}
	return latestVersion, nil
}
