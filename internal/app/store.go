package app

import "context"

// Store partitions. Each partition owns its own keyspace; a write to one never
// requires a cross-partition transaction to stay consistent.
const (
	PartitionQuestionData = "question_data"
	PartitionAttempts     = "attempts"
	PartitionSyncQueue    = "sync_queue"
	PartitionOfflineExams = "offline_exams"
)

// QuestionDataKey is the fixed singleton key for the reference-data snapshot.
const QuestionDataKey = "snapshot"

// SchemaVersion is the current store schema version. Partitions introduced in
// later versions are created on open; existing partitions and their data are
// left untouched.
const SchemaVersion = 2

// Partitions lists every partition the current schema version expects.
func Partitions() []string {
	return []string{
		PartitionQuestionData,
		PartitionAttempts,
		PartitionSyncQueue,
		PartitionOfflineExams,
	}
}

// Store abstracts how records are durably kept (in-memory, Redis, Postgres).
// Values are opaque JSON blobs; identity is partition + key only.
type Store interface {
	// Put inserts or overwrites; last write wins, duplicates never error.
	// It returns once the write is durably committed.
	Put(ctx context.Context, partition, key string, value []byte) error
	// Get returns ok=false (not an error) for a missing key.
	Get(ctx context.Context, partition, key string) ([]byte, bool, error)
	// GetAll returns every record in the partition; empty map when none.
	GetAll(ctx context.Context, partition string) (map[string][]byte, error)
	// Remove is idempotent; removing an absent key is a no-op success.
	Remove(ctx context.Context, partition, key string) error
}

// KeyValue is the simpler always-available synchronous store backing the
// anonymous progress tracker. It never fails; durability is best-effort.
type KeyValue interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}
