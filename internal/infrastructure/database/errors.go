package database

import "errors"

var (
	// ErrNoPath is returned by Open when Config.Path is empty.
	ErrNoPath = errors.New("database: path is required")

	// ErrBadMigrationName is returned when a migration file does not follow
	// the YYYYMMDD_HHMMSS_description.up.sql pattern.
	ErrBadMigrationName = errors.New("database: malformed migration filename")
)
