// Package migrations holds the versioned schema for the Postgres-backed
// store. Each migration only adds partitions; none rewrites or drops data a
// previous version created, so re-running on startup is always safe.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
