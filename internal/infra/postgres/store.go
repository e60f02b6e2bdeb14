package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"prepsync/internal/domain"
)

// Store keeps each partition in its own table (store_{partition}) with a TEXT
// primary key and a JSONB value. Tables are created by the bun migrations in
// the migrations subpackage; a schema version bump only adds tables, existing
// partitions and their rows are never touched.
type Store struct {
	pool   *pgxpool.Pool
	tables map[string]string
}

// New wraps an already-migrated database. Partition names are mapped to
// fixed table names up front so they never reach SQL as raw input.
func New(pool *pgxpool.Pool, partitions []string) *Store {
	tables := make(map[string]string, len(partitions))
	for _, partition := range partitions {
		tables[partition] = "store_" + partition
	}
	return &Store{pool: pool, tables: tables}
}

func (s *Store) Put(ctx context.Context, partition, key string, value []byte) error {
	table, err := s.table(partition)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, table)
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("put %s/%s: %w", partition, key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, partition, key string) ([]byte, bool, error) {
	table, err := s.table(partition)
	if err != nil {
		return nil, false, err
	}
	var value []byte
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, table)
	err = s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", partition, key, err)
	}
	return value, true, nil
}

func (s *Store) GetAll(ctx context.Context, partition string) (map[string][]byte, error) {
	table, err := s.table(partition)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT key, value FROM %s`, table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", partition, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", partition, err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (s *Store) Remove(ctx context.Context, partition, key string) error {
	table, err := s.table(partition)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, table)
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("remove %s/%s: %w", partition, key, err)
	}
	return nil
}

func (s *Store) table(partition string) (string, error) {
	table, ok := s.tables[partition]
	if !ok {
		return "", domain.ErrPartitionUnknown
	}
	return table, nil
}
