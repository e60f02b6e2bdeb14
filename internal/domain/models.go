package domain

import (
	"encoding/json"
	"time"
)

// AttemptStatus tracks the lifecycle of an exam attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// SyncRecordType distinguishes what kind of mutation a queued record mirrors.
type SyncRecordType string

const (
	SyncQuestionData SyncRecordType = "questionData"
	SyncAttempt      SyncRecordType = "attempt"
)

// ExamAttempt is an in-progress or completed practice exam. Answers are keyed
// by question; re-answering the same question overwrites, never duplicates.
// A completed attempt is immutable except for late score correction.
type ExamAttempt struct {
	ID              string            `json:"id"`
	ExamID          string            `json:"examId"`
	SubjectID       string            `json:"subjectId,omitempty"`
	CategoryID      string            `json:"categoryId,omitempty"`
	ExamBodyID      string            `json:"examBodyId,omitempty"`
	Answers         map[string]string `json:"answers"`
	StartedAt       time.Time         `json:"startedAt"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
	DurationSeconds int               `json:"durationSeconds,omitempty"`
	Score           int               `json:"score,omitempty"`
	TotalQuestions  int               `json:"totalQuestions,omitempty"`
	Status          AttemptStatus     `json:"status"`
}

// OfflineExam is a downloaded exam bundle, keyed by ExamID. Created by an
// explicit "download for offline" action, removed when the user discards it.
type OfflineExam struct {
	ExamID       string          `json:"examId"`
	Title        string          `json:"title"`
	Questions    json.RawMessage `json:"questions"`
	DownloadedAt time.Time       `json:"downloadedAt"`
	ExamBody     string          `json:"examBody"`
	Subcategory  string          `json:"subcategory"`
}

// QuestionDataSnapshot is the singleton cached copy of reference data. It is
// replaced wholesale on refresh, never merged field by field.
type QuestionDataSnapshot struct {
	ExamBodies json.RawMessage `json:"examBodies"`
	Categories json.RawMessage `json:"categories"`
	Subjects   json.RawMessage `json:"subjects"`
	Questions  json.RawMessage `json:"questions"`
	FetchedAt  time.Time       `json:"fetchedAt"`
}

// SyncRecord is a pending mutation awaiting delivery to the remote system.
// The mutation it mirrors is always already durable locally, so a queue entry
// is never the only copy of data; the record is removed only after confirmed
// delivery.
type SyncRecord struct {
	ID        string          `json:"id"`
	Type      SyncRecordType  `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AnonymousAnswer is one answered question inside an anonymous attempt.
type AnonymousAnswer struct {
	ID            string `json:"id"`
	UserAnswer    string `json:"userAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
}

// AnonymousScore summarizes an anonymous attempt.
type AnonymousScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// AnonymousPracticeAttempt is one entry of the append-only practice log kept
// for users without an account.
type AnonymousPracticeAttempt struct {
	ID           string            `json:"id"`
	ExamBodyID   string            `json:"examBodyId"`
	ExamBodyName string            `json:"examBodyName"`
	Questions    []AnonymousAnswer `json:"questions"`
	Score        AnonymousScore    `json:"score"`
	CompletedAt  time.Time         `json:"completedAt"`
}

// AnonymousStreakData is a derived aggregate over the anonymous practice log,
// recomputed on every write. CurrentStreak never exceeds LongestStreak.
type AnonymousStreakData struct {
	CurrentStreak    int       `json:"currentStreak"`
	LongestStreak    int       `json:"longestStreak"`
	LastPracticeDate CivilDate `json:"lastPracticeDate"`
}
