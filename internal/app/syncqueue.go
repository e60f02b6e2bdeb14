package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"prepsync/internal/domain"
)

// Deliverer ships a single sync record to the remote endpoint. Any non-nil
// error (transport failure, non-success response, malformed response) means
// the record was not accepted and must stay queued.
type Deliverer interface {
	Deliver(ctx context.Context, record domain.SyncRecord) error
}

// Reachability reports the platform's best-effort online signal. It is
// advisory: delivery attempts remain the final authority.
type Reachability interface {
	Online() bool
}

// SyncQueue persists pending mutations and drains them to the remote endpoint
// in insertion order, stopping at the first failure so later records never
// overtake earlier ones.
type SyncQueue struct {
	store     Store
	deliverer Deliverer
	reach     Reachability
	log       *zap.Logger
	clock     func() time.Time

	// draining is the single-flight guard. It is owned by this instance and
	// never exposed; overlapping Drain calls no-op instead of waiting.
	draining atomic.Bool

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSyncQueue(store Store, deliverer Deliverer, reach Reachability, log *zap.Logger) *SyncQueue {
	return &SyncQueue{
		store:     store,
		deliverer: deliverer,
		reach:     reach,
		log:       log,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enqueue wraps the payload as a SyncRecord with a fresh unique id, persists
// it, then triggers (without blocking on) a drain attempt. The durability
// guarantee holds even when the drain itself is skipped or fails.
func (q *SyncQueue) Enqueue(ctx context.Context, typ domain.SyncRecordType, payload json.RawMessage) (domain.SyncRecord, error) {
	record := domain.SyncRecord{
		ID:        q.newID(typ),
		Type:      typ,
		Payload:   payload,
		CreatedAt: q.clock(),
	}
	buf, err := json.Marshal(record)
	if err != nil {
		return domain.SyncRecord{}, fmt.Errorf("marshal sync record: %w", err)
	}
	if err := q.store.Put(ctx, PartitionSyncQueue, record.ID, buf); err != nil {
		return domain.SyncRecord{}, fmt.Errorf("persist sync record: %w", err)
	}
	q.TriggerDrain()
	return record, nil
}

// TriggerDrain starts a drain in the background. Safe to call from anywhere;
// the drain itself no-ops when offline or already running.
func (q *SyncQueue) TriggerDrain() {
	go q.Drain(context.Background())
}

// Drain delivers every queued record in insertion order. Overlapping calls
// and calls while offline are silent no-ops. On the first failed delivery the
// drain stops, leaving that record and all later ones queued for the next
// trigger. Failures are logged, never propagated.
func (q *SyncQueue) Drain(ctx context.Context) {
	if q.reach != nil && !q.reach.Online() {
		return
	}
	if !q.draining.CompareAndSwap(false, true) {
		return
	}
	defer q.draining.Store(false)

	raw, err := q.store.GetAll(ctx, PartitionSyncQueue)
	if err != nil {
		q.log.Warn("sync queue read failed", zap.Error(err))
		return
	}

	records := make([]domain.SyncRecord, 0, len(raw))
	for key, buf := range raw {
		var record domain.SyncRecord
		if err := json.Unmarshal(buf, &record); err != nil {
			// Corrupt entries can never be delivered; skip without removing
			// so nothing is silently discarded.
			q.log.Warn("skipping unreadable sync record", zap.String("key", key), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})

	for _, record := range records {
		if err := q.deliverer.Deliver(ctx, record); err != nil {
			q.log.Info("sync delivery failed, drain halted",
				zap.String("record", record.ID),
				zap.Error(err))
			return
		}
		if err := q.store.Remove(ctx, PartitionSyncQueue, record.ID); err != nil {
			q.log.Warn("dequeue failed after delivery", zap.String("record", record.ID), zap.Error(err))
			return
		}
	}
}

// Pending returns the queued records in drain order. Read-only helper for
// callers that surface sync state.
func (q *SyncQueue) Pending(ctx context.Context) ([]domain.SyncRecord, error) {
	raw, err := q.store.GetAll(ctx, PartitionSyncQueue)
	if err != nil {
		return nil, err
	}
	records := make([]domain.SyncRecord, 0, len(raw))
	for _, buf := range raw {
		var record domain.SyncRecord
		if err := json.Unmarshal(buf, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// newID derives a unique id from the record type, the current time and a
// random component, unique without coordination.
func (q *SyncQueue) newID(typ domain.SyncRecordType) string {
	q.mu.Lock()
	n := q.rnd.Int63()
	q.mu.Unlock()
	return fmt.Sprintf("%s-%d-%x", typ, q.clock().UnixNano(), n)
}
