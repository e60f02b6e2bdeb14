package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"prepsync/internal/domain"
)

const (
	versionKey      = "prepsync:schema:version"
	partitionPrefix = "prepsync:partition:"
	storePrefix     = "prepsync:store:"
)

// Store keeps each partition in its own Redis hash:
//
//	HSET prepsync:store:{partition} {key} {json}
//
// Partition existence is marked under prepsync:partition:{partition} and the
// schema version under prepsync:schema:version, so reopening at a higher
// version creates only what is missing and never touches existing hashes.
type Store struct {
	client     *redis.Client
	partitions map[string]struct{}
}

// Open ensures the schema at the given version and returns the store. Safe to
// run on every startup; a failure here means Redis is unreachable and the
// caller should degrade rather than crash.
func Open(ctx context.Context, client *redis.Client, version int, partitions []string) (*Store, error) {
	s := &Store{client: client, partitions: make(map[string]struct{}, len(partitions))}
	for _, partition := range partitions {
		s.partitions[partition] = struct{}{}
	}
	if err := s.upgrade(ctx, version, partitions); err != nil {
		return nil, fmt.Errorf("open redis store: %w", err)
	}
	return s, nil
}

func (s *Store) upgrade(ctx context.Context, version int, partitions []string) error {
	current, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if version > current {
		if err := s.client.Set(ctx, versionKey, version, 0).Err(); err != nil {
			return err
		}
	}
	pipe := s.client.Pipeline()
	for _, partition := range partitions {
		pipe.SetNX(ctx, partitionPrefix+partition, "1", 0)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Version reads the stored schema version, zero when never initialized.
func (s *Store) Version(ctx context.Context) (int, error) {
	raw, err := s.client.Get(ctx, versionKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt schema version %q: %w", raw, err)
	}
	return version, nil
}

func (s *Store) Put(ctx context.Context, partition, key string, value []byte) error {
	if err := s.check(partition); err != nil {
		return err
	}
	return s.client.HSet(ctx, storePrefix+partition, key, value).Err()
}

func (s *Store) Get(ctx context.Context, partition, key string) ([]byte, bool, error) {
	if err := s.check(partition); err != nil {
		return nil, false, err
	}
	raw, err := s.client.HGet(ctx, storePrefix+partition, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(raw), true, nil
}

func (s *Store) GetAll(ctx context.Context, partition string) (map[string][]byte, error) {
	if err := s.check(partition); err != nil {
		return nil, err
	}
	raw, err := s.client.HGetAll(ctx, storePrefix+partition).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for key, value := range raw {
		out[key] = []byte(value)
	}
	return out, nil
}

func (s *Store) Remove(ctx context.Context, partition, key string) error {
	if err := s.check(partition); err != nil {
		return err
	}
	return s.client.HDel(ctx, storePrefix+partition, key).Err()
}

func (s *Store) check(partition string) error {
	if _, ok := s.partitions[partition]; !ok {
		return domain.ErrPartitionUnknown
	}
	return nil
}
