package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"prepsync/internal/domain"
)

// Client talks to the remote exam platform: it delivers queued sync records
// and loads question reference data. It implements app.Deliverer and
// app.QuestionDataLoader.
type Client struct {
	syncURL      string
	questionsURL string
	http         *http.Client
}

func NewClient(syncURL, questionsURL string) *Client {
	return &Client{
		syncURL:      syncURL,
		questionsURL: questionsURL,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

type syncEnvelope struct {
	Type    domain.SyncRecordType `json:"type"`
	Payload json.RawMessage       `json:"payload"`
}

// Deliver posts one record to the sync endpoint. Any 2xx status confirms
// delivery; anything else (including transport errors) leaves the record
// queued. The response body is not parsed on failure.
func (c *Client) Deliver(ctx context.Context, record domain.SyncRecord) error {
	body, err := json.Marshal(syncEnvelope{Type: record.Type, Payload: record.Payload})
	if err != nil {
		return fmt.Errorf("encode sync record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.syncURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", domain.ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

// LoadQuestionData fetches a fresh reference-data snapshot.
func (c *Client) LoadQuestionData(ctx context.Context) (domain.QuestionDataSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.questionsURL, nil)
	if err != nil {
		return domain.QuestionDataSnapshot{}, fmt.Errorf("build questions request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.QuestionDataSnapshot{}, fmt.Errorf("load question data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.QuestionDataSnapshot{}, fmt.Errorf("load question data: status %d", resp.StatusCode)
	}

	var snapshot domain.QuestionDataSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return domain.QuestionDataSnapshot{}, fmt.Errorf("decode question data: %w", err)
	}
	return snapshot, nil
}
