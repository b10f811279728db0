package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
)

// Op identifies the kind of write a dispatcher performed.
type Op string

const (
	OpToggleIssue Op = "toggle_issue"
	OpAnswerPoll  Op = "answer_poll"
)

// WriteResult is the outcome of one remote commit. The dispatcher never
// rolls back or retries on its own; whoever wires the dispatcher decides
// what a failed commit means.
type WriteResult struct {
	Op         Op
	Issue      string
	QuestionID uuid.UUID
	Selected   []string
	Err        error
}

// Store is the write surface the dispatcher commits against.
type Store interface {
	UpdateReportedIssues(ctx context.Context, sessionID, testerID uuid.UUID, issues []string) error
	SavePollResponse(ctx context.Context, sessionID, questionID, testerID uuid.UUID, selected []string) error
}

// Dispatcher applies tester actions optimistically: local state changes
// immediately, then the write is committed to the store asynchronously.
// Commit outcomes are delivered to onResult; a failure leaves the
// optimistic local value in place.
type Dispatcher struct {
	store        Store
	state        *State
	onResult     func(WriteResult)
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewDispatcher creates a dispatcher over state. onResult may be nil.
func NewDispatcher(store Store, state *State, writeTimeout time.Duration, onResult func(WriteResult), logger *zap.Logger) *Dispatcher {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, state: state, onResult: onResult, writeTimeout: writeTimeout, logger: logger}
}

// SelectScene changes the locally selected scene. Purely local; scene
// selection is never written to the server.
func (d *Dispatcher) SelectScene(id uuid.UUID) bool {
	if d.state.findScene(id) == nil {
		return false
	}
	d.state.SelectedSceneID = id
	return true
}

// ToggleIssue flips one reported issue on or off and commits the full
// resulting set. Toggling twice returns the set to its original value and
// issues two writes with the two distinct sets.
func (d *Dispatcher) ToggleIssue(issue string) {
	if d.state.Tester == nil {
		d.logger.Warn("issue toggle before first snapshot", zap.String("issue", issue))
		return
	}
	if d.state.ReportedIssues[issue] {
		delete(d.state.ReportedIssues, issue)
	} else {
		d.state.ReportedIssues[issue] = true
	}

	issues := d.state.ReportedIssueList()
	sessionID := d.state.Tester.SessionID
	testerID := d.state.Tester.ID
	go d.commit(WriteResult{Op: OpToggleIssue, Issue: issue, Selected: issues}, func(ctx context.Context) error {
		return d.store.UpdateReportedIssues(ctx, sessionID, testerID, issues)
	})
}

// AnswerPoll applies an answer to the question's local selection and
// commits it. Radio questions replace the selection outright; checkbox
// questions toggle the option in and out of the set.
func (d *Dispatcher) AnswerPoll(questionID uuid.UUID, option string) {
	if d.state.Tester == nil {
		d.logger.Warn("poll answer before first snapshot", zap.String("question_id", questionID.String()))
		return
	}
	q := d.state.findQuestion(questionID)
	if q == nil {
		d.logger.Warn("answer for unknown poll question", zap.String("question_id", questionID.String()))
		return
	}

	current := d.state.PollResponses[questionID]
	var next []string
	if q.QuestionType == models.QuestionTypeRadio {
		next = []string{option}
	} else {
		next = toggleOption(current, option)
	}
	d.state.PollResponses[questionID] = next

	selected := append([]string(nil), next...)
	sessionID := d.state.Tester.SessionID
	testerID := d.state.Tester.ID
	go d.commit(WriteResult{Op: OpAnswerPoll, QuestionID: questionID, Selected: selected}, func(ctx context.Context) error {
		return d.store.SavePollResponse(ctx, sessionID, questionID, testerID, selected)
	})
}

func (d *Dispatcher) commit(res WriteResult, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	res.Err = fn(ctx)
	if res.Err != nil {
		d.logger.Warn("write failed, keeping optimistic state",
			zap.String("op", string(res.Op)), zap.Error(res.Err))
	}
	if d.onResult != nil {
		d.onResult(res)
	}
}

func toggleOption(current []string, option string) []string {
	next := make([]string, 0, len(current)+1)
	removed := false
	for _, opt := range current {
		if opt == option {
			removed = true
			continue
		}
		next = append(next, opt)
	}
	if !removed {
		next = append(next, option)
	}
	return next
}
