package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0002_add_offline_exams.sql
var addOfflineExamsSQL string

// Schema version 2: the offline_exams partition, added after the initial
// release. Existing partitions are untouched.
func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(addOfflineExamsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`DROP TABLE IF EXISTS store_offline_exams`)
			return err
		},
	)
}
