package app

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"prepsync/internal/domain"
)

const (
	anonAttemptsKey = "anonymous:attempts"
	anonStreakKey   = "anonymous:streak"
)

// AnonymousTracker keeps practice history, accuracy and streaks for a user
// with no authenticated identity, backed by the always-available KeyValue
// store. Clear must be called exactly once at successful account creation or
// sign-in; the remote system is the source of truth afterwards.
type AnonymousTracker struct {
	kv    KeyValue
	log   *zap.Logger
	clock func() time.Time
}

func NewAnonymousTracker(kv KeyValue, log *zap.Logger) *AnonymousTracker {
	return &AnonymousTracker{kv: kv, log: log, clock: time.Now}
}

// SaveAttempt appends the attempt to the practice log and recomputes the
// streak aggregate for the attempt's calendar day.
func (t *AnonymousTracker) SaveAttempt(attempt domain.AnonymousPracticeAttempt) {
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = t.clock()
	}
	attempts := t.Attempts()
	attempts = append(attempts, attempt)
	buf, err := json.Marshal(attempts)
	if err != nil {
		t.log.Warn("anonymous attempt not saved", zap.Error(err))
		return
	}
	t.kv.Set(anonAttemptsKey, buf)
	t.recordPractice(domain.CivilDateOf(attempt.CompletedAt))
}

// Attempts returns the append-only practice log, oldest first.
func (t *AnonymousTracker) Attempts() []domain.AnonymousPracticeAttempt {
	buf, ok := t.kv.Get(anonAttemptsKey)
	if !ok {
		return []domain.AnonymousPracticeAttempt{}
	}
	var attempts []domain.AnonymousPracticeAttempt
	if err := json.Unmarshal(buf, &attempts); err != nil {
		t.log.Warn("anonymous practice log unreadable", zap.Error(err))
		return []domain.AnonymousPracticeAttempt{}
	}
	return attempts
}

// Streak returns the current streak aggregate. Zero values when the user has
// never practiced.
func (t *AnonymousTracker) Streak() domain.AnonymousStreakData {
	buf, ok := t.kv.Get(anonStreakKey)
	if !ok {
		return domain.AnonymousStreakData{}
	}
	var streak domain.AnonymousStreakData
	if err := json.Unmarshal(buf, &streak); err != nil {
		t.log.Warn("anonymous streak unreadable", zap.Error(err))
		return domain.AnonymousStreakData{}
	}
	return streak
}

// Clear wipes all anonymous history. Invoked at account creation so local
// history is not double-counted once the server owns it.
func (t *AnonymousTracker) Clear() {
	t.kv.Delete(anonAttemptsKey)
	t.kv.Delete(anonStreakKey)
}

// recordPractice applies the deterministic streak update for one practice on
// the given calendar day:
//   - first ever practice starts a streak of 1,
//   - same day as the last practice changes nothing,
//   - exactly the next calendar day extends the streak,
//   - any larger gap resets the current streak, longest is kept.
func (t *AnonymousTracker) recordPractice(today domain.CivilDate) {
	streak := t.Streak()
	switch {
	case streak.LastPracticeDate.IsZero():
		streak = domain.AnonymousStreakData{
			CurrentStreak:    1,
			LongestStreak:    1,
			LastPracticeDate: today,
		}
	case streak.LastPracticeDate == today:
		return
	case streak.LastPracticeDate.Next() == today:
		streak.CurrentStreak++
		if streak.CurrentStreak > streak.LongestStreak {
			streak.LongestStreak = streak.CurrentStreak
		}
		streak.LastPracticeDate = today
	default:
		streak.CurrentStreak = 1
		streak.LastPracticeDate = today
	}
	buf, err := json.Marshal(streak)
	if err != nil {
		t.log.Warn("anonymous streak not saved", zap.Error(err))
		return
	}
	t.kv.Set(anonStreakKey, buf)
}
