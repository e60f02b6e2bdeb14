package app

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"prepsync/internal/domain"
	"prepsync/internal/infra/memory"
)

type staticLoader struct {
	mu       sync.Mutex
	calls    int
	block    chan struct{}
	snapshot domain.QuestionDataSnapshot
}

func (l *staticLoader) LoadQuestionData(_ context.Context) (domain.QuestionDataSnapshot, error) {
	l.mu.Lock()
	l.calls++
	block := l.block
	l.mu.Unlock()
	if block != nil {
		<-block
	}
	return l.snapshot, nil
}

func newTestRecorder(t *testing.T) (*Recorder, *SyncQueue, *staticLoader) {
	t.Helper()
	store := memory.Open(SchemaVersion, Partitions())
	// Offline reachability keeps enqueue-triggered drains as no-ops so queue
	// contents are observable.
	queue := NewSyncQueue(store, &fakeDeliverer{}, &fakeReach{}, zap.NewNop())
	loader := &staticLoader{snapshot: domain.QuestionDataSnapshot{
		Questions: json.RawMessage(`[{"id":"q1"}]`),
		FetchedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	return NewRecorder(store, queue, loader, zap.NewNop()), queue, loader
}

func TestSaveAttemptRoundTrip(t *testing.T) {
	ctx := context.Background()
	recorder, queue, _ := newTestRecorder(t)

	completed := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	attempt := domain.ExamAttempt{
		ID:             "a1",
		ExamID:         "exam-1",
		SubjectID:      "math",
		Answers:        map[string]string{"q1": "B", "q2": "D"},
		StartedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		CompletedAt:    &completed,
		Score:          8,
		TotalQuestions: 10,
		Status:         domain.AttemptCompleted,
	}
	if err := recorder.SaveAttempt(ctx, attempt); err != nil {
		t.Fatalf("save: %v", err)
	}

	attempts, err := recorder.Attempts(ctx)
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 1 || !reflect.DeepEqual(attempts[0], attempt) {
		t.Fatalf("round trip mismatch: %+v", attempts)
	}

	// The local write is mirrored into the sync queue.
	pending, err := queue.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Type != domain.SyncAttempt {
		t.Fatalf("expected one queued attempt record, got %+v", pending)
	}
}

func TestSaveAttemptOverwritesAnswers(t *testing.T) {
	ctx := context.Background()
	recorder, _, _ := newTestRecorder(t)

	attempt := domain.ExamAttempt{
		ID:        "a1",
		ExamID:    "exam-1",
		Answers:   map[string]string{"q1": "A"},
		StartedAt: time.Now().UTC(),
		Status:    domain.AttemptInProgress,
	}
	if err := recorder.SaveAttempt(ctx, attempt); err != nil {
		t.Fatalf("save: %v", err)
	}
	attempt.Answers["q1"] = "C" // user changes their answer
	if err := recorder.SaveAttempt(ctx, attempt); err != nil {
		t.Fatalf("resave: %v", err)
	}

	attempts, _ := recorder.Attempts(ctx)
	if len(attempts) != 1 {
		t.Fatalf("expected overwrite, got %d attempts", len(attempts))
	}
	if attempts[0].Answers["q1"] != "C" {
		t.Fatalf("expected answer overwritten, got %q", attempts[0].Answers["q1"])
	}
}

func TestLatestAttempt(t *testing.T) {
	ctx := context.Background()
	recorder, _, _ := newTestRecorder(t)

	if _, ok, err := recorder.LatestAttempt(ctx); ok || err != nil {
		t.Fatalf("expected no latest attempt, ok=%v err=%v", ok, err)
	}

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a1", "a3", "a2"} {
		attempt := domain.ExamAttempt{
			ID:        id,
			ExamID:    "exam-1",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    domain.AttemptInProgress,
		}
		if err := recorder.SaveAttempt(ctx, attempt); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	latest, ok, err := recorder.LatestAttempt(ctx)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if latest.ID != "a2" {
		t.Fatalf("expected most recently started attempt a2, got %s", latest.ID)
	}
}

func TestOfflineExamLifecycle(t *testing.T) {
	ctx := context.Background()
	recorder, _, _ := newTestRecorder(t)

	// Never-downloaded exam is an absent result, not an error.
	if _, ok, err := recorder.OfflineExam(ctx, "nonexistent"); ok || err != nil {
		t.Fatalf("expected absent, ok=%v err=%v", ok, err)
	}

	exam := domain.OfflineExam{
		ExamID:       "exam-1",
		Title:        "Mock Exam 1",
		Questions:    json.RawMessage(`[{"id":"q1"}]`),
		DownloadedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		ExamBody:     "WAEC",
		Subcategory:  "Mathematics",
	}
	if err := recorder.SaveOfflineExam(ctx, exam); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := recorder.OfflineExam(ctx, "exam-1")
	if err != nil || !ok || !reflect.DeepEqual(got, exam) {
		t.Fatalf("round trip mismatch: ok=%v err=%v %+v", ok, err, got)
	}

	all, err := recorder.AllOfflineExams(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one bundle, got %d err=%v", len(all), err)
	}

	if err := recorder.RemoveOfflineExam(ctx, "exam-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := recorder.RemoveOfflineExam(ctx, "exam-1"); err != nil {
		t.Fatalf("remove is idempotent: %v", err)
	}
	if _, ok, _ := recorder.OfflineExam(ctx, "exam-1"); ok {
		t.Fatalf("expected bundle discarded")
	}
}

func TestQuestionDataReplacedWholesale(t *testing.T) {
	ctx := context.Background()
	recorder, _, _ := newTestRecorder(t)

	if _, ok, err := recorder.QuestionData(ctx); ok || err != nil {
		t.Fatalf("expected no snapshot, ok=%v err=%v", ok, err)
	}

	first := domain.QuestionDataSnapshot{
		Questions: json.RawMessage(`[{"id":"q1"}]`),
		Subjects:  json.RawMessage(`["math"]`),
		FetchedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := recorder.SaveQuestionData(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A refresh replaces the snapshot wholesale; the old Subjects field does
	// not survive a merge.
	second := domain.QuestionDataSnapshot{
		Questions: json.RawMessage(`[{"id":"q2"}]`),
		FetchedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := recorder.SaveQuestionData(ctx, second); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, ok, err := recorder.QuestionData(ctx)
	if err != nil || !ok || !reflect.DeepEqual(got, second) {
		t.Fatalf("expected wholesale replacement, got %+v", got)
	}
}

func TestRefreshQuestionDataCollapsesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	recorder, queue, loader := newTestRecorder(t)

	release := make(chan struct{})
	loader.block = release

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := recorder.RefreshQuestionData(ctx); err != nil {
				t.Errorf("refresh: %v", err)
			}
		}()
	}

	// Let the callers pile up on the in-flight load, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	loader.mu.Lock()
	calls := loader.calls
	loader.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected one remote load, got %d", calls)
	}

	if _, ok, _ := recorder.QuestionData(ctx); !ok {
		t.Fatalf("expected snapshot stored after refresh")
	}
	pending, _ := queue.Pending(ctx)
	if len(pending) != 1 || pending[0].Type != domain.SyncQuestionData {
		t.Fatalf("expected one queued questionData record, got %+v", pending)
	}
}
