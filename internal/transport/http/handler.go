// Package http exposes the agent's local surface to the host UI process.
// It is a thin JSON wrapper over the recorder, tracker and queue; all domain
// rules live behind those.
package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"prepsync/internal/app"
	"prepsync/internal/connectivity"
	"prepsync/internal/domain"
)

type Handler struct {
	recorder *app.Recorder
	tracker  *app.AnonymousTracker
	queue    *app.SyncQueue
	monitor  *connectivity.SignalMonitor
	log      *zap.Logger
}

func NewHandler(recorder *app.Recorder, tracker *app.AnonymousTracker, queue *app.SyncQueue, monitor *connectivity.SignalMonitor, log *zap.Logger) *Handler {
	return &Handler{recorder: recorder, tracker: tracker, queue: queue, monitor: monitor, log: log}
}

// Register wires all routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /syncz", h.syncStatus)
	mux.HandleFunc("POST /connectivity", h.setConnectivity)

	mux.HandleFunc("POST /attempts", h.saveAttempt)
	mux.HandleFunc("GET /attempts", h.listAttempts)
	mux.HandleFunc("GET /attempts/latest", h.latestAttempt)

	mux.HandleFunc("PUT /offline-exams", h.saveOfflineExam)
	mux.HandleFunc("GET /offline-exams", h.listOfflineExams)
	mux.HandleFunc("GET /offline-exams/{examID}", h.getOfflineExam)
	mux.HandleFunc("DELETE /offline-exams/{examID}", h.removeOfflineExam)

	mux.HandleFunc("GET /question-data", h.questionData)
	mux.HandleFunc("POST /question-data/refresh", h.refreshQuestionData)

	mux.HandleFunc("POST /anonymous/attempts", h.saveAnonymousAttempt)
	mux.HandleFunc("GET /anonymous/attempts", h.listAnonymousAttempts)
	mux.HandleFunc("GET /anonymous/streak", h.streak)
	mux.HandleFunc("DELETE /anonymous", h.clearAnonymous)
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := h.queue.Pending(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, map[string]any{
		"online":  h.monitor.Online(),
		"pending": len(pending),
	})
}

// setConnectivity is the platform adapter feed: the host reports reachability
// transitions here when no websocket watcher is configured.
func (h *Handler) setConnectivity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.monitor.SetOnline(body.Online)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) saveAttempt(w http.ResponseWriter, r *http.Request) {
	var attempt domain.ExamAttempt
	if err := json.NewDecoder(r.Body).Decode(&attempt); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if attempt.ID == "" {
		http.Error(w, "attempt id required", http.StatusBadRequest)
		return
	}
	if err := h.recorder.SaveAttempt(r.Context(), attempt); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.recorder.Attempts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, attempts)
}

func (h *Handler) latestAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, ok, err := h.recorder.LatestAttempt(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if !ok {
		http.Error(w, "no attempts", http.StatusNotFound)
		return
	}
	h.respond(w, attempt)
}

func (h *Handler) saveOfflineExam(w http.ResponseWriter, r *http.Request) {
	var exam domain.OfflineExam
	if err := json.NewDecoder(r.Body).Decode(&exam); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if exam.ExamID == "" {
		http.Error(w, "exam id required", http.StatusBadRequest)
		return
	}
	if err := h.recorder.SaveOfflineExam(r.Context(), exam); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listOfflineExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.recorder.AllOfflineExams(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, exams)
}

func (h *Handler) getOfflineExam(w http.ResponseWriter, r *http.Request) {
	exam, ok, err := h.recorder.OfflineExam(r.Context(), r.PathValue("examID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !ok {
		http.Error(w, "not downloaded", http.StatusNotFound)
		return
	}
	h.respond(w, exam)
}

func (h *Handler) removeOfflineExam(w http.ResponseWriter, r *http.Request) {
	if err := h.recorder.RemoveOfflineExam(r.Context(), r.PathValue("examID")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) questionData(w http.ResponseWriter, r *http.Request) {
	snapshot, ok, err := h.recorder.QuestionData(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if !ok {
		http.Error(w, "no snapshot", http.StatusNotFound)
		return
	}
	h.respond(w, snapshot)
}

func (h *Handler) refreshQuestionData(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.recorder.RefreshQuestionData(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, snapshot)
}

func (h *Handler) saveAnonymousAttempt(w http.ResponseWriter, r *http.Request) {
	var attempt domain.AnonymousPracticeAttempt
	if err := json.NewDecoder(r.Body).Decode(&attempt); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.tracker.SaveAttempt(attempt)
	h.respond(w, h.tracker.Streak())
}

func (h *Handler) listAnonymousAttempts(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.tracker.Attempts())
}

func (h *Handler) streak(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.tracker.Streak())
}

func (h *Handler) clearAnonymous(w http.ResponseWriter, r *http.Request) {
	h.tracker.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Warn("response encode failed", zap.Error(err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.log.Warn("request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
