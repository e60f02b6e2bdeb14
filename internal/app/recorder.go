package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"prepsync/internal/domain"
)

// QuestionDataLoader fetches reference data from the remote exam/question API.
type QuestionDataLoader interface {
	LoadQuestionData(ctx context.Context) (domain.QuestionDataSnapshot, error)
}

// Recorder is the domain-level read/write API over the persistent store:
// exam attempts, downloaded offline exam bundles and the question-data
// snapshot. Writes that must eventually reach the server are mirrored into
// the sync queue after the local write is durable.
type Recorder struct {
	store  Store
	queue  *SyncQueue
	loader QuestionDataLoader
	log    *zap.Logger
	clock  func() time.Time
	sf     singleflight.Group
}

func NewRecorder(store Store, queue *SyncQueue, loader QuestionDataLoader, log *zap.Logger) *Recorder {
	return &Recorder{
		store:  store,
		queue:  queue,
		loader: loader,
		log:    log,
		clock:  time.Now,
	}
}

// SaveAttempt upserts the attempt and queues it for delivery. The local write
// commits first; a crash between the two leaves the attempt saved but not yet
// queued, which is tolerated (no reconciliation sweep exists).
func (r *Recorder) SaveAttempt(ctx context.Context, attempt domain.ExamAttempt) error {
	buf, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := r.store.Put(ctx, PartitionAttempts, attempt.ID, buf); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	if r.queue != nil {
		if _, err := r.queue.Enqueue(ctx, domain.SyncAttempt, buf); err != nil {
			// The attempt is durable locally; sync failures stay silent.
			r.log.Warn("attempt saved but not queued for sync",
				zap.String("attempt", attempt.ID),
				zap.Error(err))
		}
	}
	return nil
}

// Attempts returns every stored attempt.
func (r *Recorder) Attempts(ctx context.Context) ([]domain.ExamAttempt, error) {
	raw, err := r.store.GetAll(ctx, PartitionAttempts)
	if err != nil {
		return nil, err
	}
	attempts := make([]domain.ExamAttempt, 0, len(raw))
	for key, buf := range raw {
		var attempt domain.ExamAttempt
		if err := json.Unmarshal(buf, &attempt); err != nil {
			r.log.Warn("skipping unreadable attempt", zap.String("key", key), zap.Error(err))
			continue
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// LatestAttempt returns the most recently started attempt, ok=false when none
// exist.
func (r *Recorder) LatestAttempt(ctx context.Context) (domain.ExamAttempt, bool, error) {
	attempts, err := r.Attempts(ctx)
	if err != nil || len(attempts) == 0 {
		return domain.ExamAttempt{}, false, err
	}
	latest := attempts[0]
	for _, attempt := range attempts[1:] {
		if attempt.StartedAt.After(latest.StartedAt) {
			latest = attempt
		}
	}
	return latest, true, nil
}

// SaveOfflineExam stores a downloaded exam bundle under its exam id.
func (r *Recorder) SaveOfflineExam(ctx context.Context, exam domain.OfflineExam) error {
	buf, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal offline exam: %w", err)
	}
	return r.store.Put(ctx, PartitionOfflineExams, exam.ExamID, buf)
}

// OfflineExam returns the downloaded bundle for examID; ok=false when the
// exam was never downloaded. A missing bundle is not an error.
func (r *Recorder) OfflineExam(ctx context.Context, examID string) (domain.OfflineExam, bool, error) {
	buf, ok, err := r.store.Get(ctx, PartitionOfflineExams, examID)
	if err != nil || !ok {
		return domain.OfflineExam{}, false, err
	}
	var exam domain.OfflineExam
	if err := json.Unmarshal(buf, &exam); err != nil {
		return domain.OfflineExam{}, false, fmt.Errorf("unmarshal offline exam: %w", err)
	}
	return exam, true, nil
}

// AllOfflineExams returns every downloaded bundle.
func (r *Recorder) AllOfflineExams(ctx context.Context) ([]domain.OfflineExam, error) {
	raw, err := r.store.GetAll(ctx, PartitionOfflineExams)
	if err != nil {
		return nil, err
	}
	exams := make([]domain.OfflineExam, 0, len(raw))
	for key, buf := range raw {
		var exam domain.OfflineExam
		if err := json.Unmarshal(buf, &exam); err != nil {
			r.log.Warn("skipping unreadable offline exam", zap.String("key", key), zap.Error(err))
			continue
		}
		exams = append(exams, exam)
	}
	return exams, nil
}

// RemoveOfflineExam discards a downloaded bundle. Idempotent.
func (r *Recorder) RemoveOfflineExam(ctx context.Context, examID string) error {
	return r.store.Remove(ctx, PartitionOfflineExams, examID)
}

// SaveQuestionData replaces the reference-data snapshot wholesale.
func (r *Recorder) SaveQuestionData(ctx context.Context, snapshot domain.QuestionDataSnapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal question data: %w", err)
	}
	return r.store.Put(ctx, PartitionQuestionData, QuestionDataKey, buf)
}

// QuestionData returns the cached snapshot; ok=false when none was stored.
func (r *Recorder) QuestionData(ctx context.Context) (domain.QuestionDataSnapshot, bool, error) {
	buf, ok, err := r.store.Get(ctx, PartitionQuestionData, QuestionDataKey)
	if err != nil || !ok {
		return domain.QuestionDataSnapshot{}, false, err
	}
	var snapshot domain.QuestionDataSnapshot
	if err := json.Unmarshal(buf, &snapshot); err != nil {
		return domain.QuestionDataSnapshot{}, false, fmt.Errorf("unmarshal question data: %w", err)
	}
	return snapshot, true, nil
}

// RefreshQuestionData pulls a fresh snapshot from the remote API, stores it
// and queues a questionData record. Concurrent refreshes collapse into a
// single load.
func (r *Recorder) RefreshQuestionData(ctx context.Context) (domain.QuestionDataSnapshot, error) {
	result, err, _ := r.sf.Do(QuestionDataKey, func() (interface{}, error) {
		snapshot, err := r.loader.LoadQuestionData(ctx)
		if err != nil {
			return domain.QuestionDataSnapshot{}, err
		}
		if snapshot.FetchedAt.IsZero() {
			snapshot.FetchedAt = r.clock()
		}
		if err := r.SaveQuestionData(ctx, snapshot); err != nil {
			return domain.QuestionDataSnapshot{}, err
		}
		if r.queue != nil {
			buf, _ := json.Marshal(snapshot)
			if _, err := r.queue.Enqueue(ctx, domain.SyncQuestionData, buf); err != nil {
				r.log.Warn("question data saved but not queued for sync", zap.Error(err))
			}
		}
		return snapshot, nil
	})
	if err != nil {
		return domain.QuestionDataSnapshot{}, err
	}
	return result.(domain.QuestionDataSnapshot), nil
}
