// Package client implements the device-side view of a playtest session:
// an HTTP store client, a reconciling local state, an optimistic mutation
// dispatcher and a polling controller that ties them together.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/airlog/backend/internal/join"
	"github.com/airlog/backend/internal/models"
)

// Phase is the tester-visible session phase, shared with the server so the
// two sides can never disagree on how status maps to phase.
type Phase = models.Phase

const (
	PhaseNotStarted = models.PhaseNotStarted
	PhaseActive     = models.PhaseActive
	PhaseEnded      = models.PhaseEnded
)

// PollInterval returns the polling cadence for a phase. Waiting testers
// poll fast; active testers poll slower; an ended session polls never.
func PollInterval(p Phase) time.Duration {
	switch p {
	case PhaseActive:
		return 5 * time.Second
	case PhaseEnded:
		return 0
	default:
		return 3 * time.Second
	}
}

// Sentinel errors for the status codes the poll loop dispatches on.
var (
	// ErrNotStarted is the expected steady state before the admin starts
	// the session. Callers keep polling.
	ErrNotStarted = errors.New("session has not started")
	// ErrEnded means the session is over. Callers stop polling forever.
	ErrEnded = errors.New("session has ended")
	// ErrInvalidToken means the join token resolves to nothing. Callers
	// stop polling until the user re-enters a token.
	ErrInvalidToken = errors.New("invalid invite token")
)

// APIError is a non-sentinel request failure carrying the HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// Permanent reports whether the error is a client-side mistake that
// retrying the same request cannot fix.
func (e *APIError) Permanent() bool {
	return e.Status >= 400 && e.Status < 500
}

// Snapshot is the full state bundle returned by one poll fetch.
type Snapshot = join.Snapshot

// Client talks to the feedback store over HTTP. All methods honor ctx and
// the configured request timeout; a timeout is reported as an error.
type Client struct {
	baseURL string
	http    *http.Client
	seq     atomic.Int64
}

// New creates a store client for baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Snapshot fetches the tester's current view of the session. The t query
// param increases monotonically to defeat intermediary caching.
func (c *Client) Snapshot(ctx context.Context, token string) (*Snapshot, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	url := fmt.Sprintf("%s/join/%s?t=%d", c.baseURL, token, c.seq.Add(1))

	var snap Snapshot
	if err := c.do(ctx, http.MethodGet, url, nil, &snap); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			// 425, 410 and 404 are load-bearing: the poll loop dispatches
			// on them to pick between waiting, stopping forever and
			// surfacing a bad-token error.
			switch apiErr.Status {
			case http.StatusTooEarly:
				return nil, ErrNotStarted
			case http.StatusGone:
				return nil, ErrEnded
			case http.StatusNotFound:
				return nil, ErrInvalidToken
			}
		}
		return nil, err
	}
	return &snap, nil
}

// Notes fetches the tester's notes for the session, oldest first.
func (c *Client) Notes(ctx context.Context, sessionID, testerID uuid.UUID) ([]models.Note, error) {
	url := fmt.Sprintf("%s/sessions/%s/notes?testerId=%s&t=%d", c.baseURL, sessionID, testerID, c.seq.Add(1))
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, url, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// UpdateReportedIssues replaces the tester's reported-issue set on the
// server with the given complete set.
func (c *Client) UpdateReportedIssues(ctx context.Context, sessionID, testerID uuid.UUID, issues []string) error {
	url := fmt.Sprintf("%s/sessions/%s/testers/%s", c.baseURL, sessionID, testerID)
	if issues == nil {
		issues = []string{}
	}
	body := map[string]any{"reported_issues": issues}
	return c.do(ctx, http.MethodPatch, url, body, nil)
}

// SavePollResponse upserts the tester's answer to one poll question.
func (c *Client) SavePollResponse(ctx context.Context, sessionID, questionID, testerID uuid.UUID, selected []string) error {
	url := fmt.Sprintf("%s/sessions/%s/poll-responses", c.baseURL, sessionID)
	if selected == nil {
		selected = []string{}
	}
	body := map[string]any{
		"poll_question_id": questionID,
		"tester_id":        testerID,
		"selected_options": selected,
	}
	return c.do(ctx, http.MethodPost, url, body, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
