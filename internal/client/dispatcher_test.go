package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlog/backend/internal/models"
)

type fakeWriteStore struct {
	mu        sync.Mutex
	issueSets [][]string
	pollSets  [][]string
	writeErr  error
}

func (f *fakeWriteStore) UpdateReportedIssues(ctx context.Context, sessionID, testerID uuid.UUID, issues []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issueSets = append(f.issueSets, append([]string(nil), issues...))
	return f.writeErr
}

func (f *fakeWriteStore) SavePollResponse(ctx context.Context, sessionID, questionID, testerID uuid.UUID, selected []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollSets = append(f.pollSets, append([]string(nil), selected...))
	return f.writeErr
}

func newDispatcherUnderTest(t *testing.T, store *fakeWriteStore, questionType string) (*Dispatcher, *State, uuid.UUID, chan WriteResult) {
	t.Helper()
	state := NewState()
	qID := uuid.New()
	scene := models.Scene{ID: uuid.New(), Name: "Hangar", PollQuestions: []models.PollQuestion{{
		ID:           qID,
		Question:     "Did the scene load?",
		QuestionType: questionType,
		Options:      []string{"A", "B", "C"},
	}}}
	snap := makeSnapshot(models.StatusActive, []models.Scene{scene}, nil, nil)
	state.applySnapshot(snap, time.Now())

	results := make(chan WriteResult, 8)
	d := NewDispatcher(store, state, time.Second, func(r WriteResult) { results <- r }, nil)
	return d, state, qID, results
}

func waitResult(t *testing.T, results chan WriteResult) WriteResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write result")
		return WriteResult{}
	}
}

func TestToggleIssueIdempotent(t *testing.T) {
	store := &fakeWriteStore{}
	d, state, _, results := newDispatcherUnderTest(t, store, models.QuestionTypeCheckbox)

	d.ToggleIssue("Audio issues")
	first := waitResult(t, results)
	assert.True(t, state.ReportedIssues["Audio issues"])
	assert.Equal(t, []string{"Audio issues"}, first.Selected)

	d.ToggleIssue("Audio issues")
	second := waitResult(t, results)
	assert.False(t, state.ReportedIssues["Audio issues"])
	assert.Empty(t, second.Selected)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.issueSets, 2)
}

func TestAnswerPollRadioReplaces(t *testing.T) {
	store := &fakeWriteStore{}
	d, state, qID, results := newDispatcherUnderTest(t, store, models.QuestionTypeRadio)

	d.AnswerPoll(qID, "A")
	waitResult(t, results)
	assert.Equal(t, []string{"A"}, state.PollResponses[qID])

	d.AnswerPoll(qID, "B")
	waitResult(t, results)
	assert.Equal(t, []string{"B"}, state.PollResponses[qID])
}

func TestAnswerPollCheckboxToggles(t *testing.T) {
	store := &fakeWriteStore{}
	d, state, qID, results := newDispatcherUnderTest(t, store, models.QuestionTypeCheckbox)

	d.AnswerPoll(qID, "A")
	waitResult(t, results)
	d.AnswerPoll(qID, "B")
	waitResult(t, results)
	assert.Equal(t, []string{"A", "B"}, state.PollResponses[qID])

	// Answering with an already-selected option removes it.
	d.AnswerPoll(qID, "A")
	waitResult(t, results)
	assert.Equal(t, []string{"B"}, state.PollResponses[qID])
}

func TestWriteFailureKeepsOptimisticState(t *testing.T) {
	store := &fakeWriteStore{writeErr: errors.New("network down")}
	d, state, _, results := newDispatcherUnderTest(t, store, models.QuestionTypeCheckbox)

	d.ToggleIssue("Audio issues")
	res := waitResult(t, results)

	require.Error(t, res.Err)
	assert.True(t, state.ReportedIssues["Audio issues"], "failed write must not roll back the toggle")
}

func TestSelectSceneLocalOnly(t *testing.T) {
	store := &fakeWriteStore{}
	d, state, _, _ := newDispatcherUnderTest(t, store, models.QuestionTypeRadio)

	other := models.Scene{ID: uuid.New(), Name: "Runway"}
	state.Scenes = append(state.Scenes, other)

	assert.True(t, d.SelectScene(other.ID))
	assert.Equal(t, other.ID, state.SelectedSceneID)
	assert.False(t, d.SelectScene(uuid.New()), "unknown scene is rejected")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.issueSets)
	assert.Empty(t, store.pollSets)
}

func TestUnknownQuestionIgnored(t *testing.T) {
	store := &fakeWriteStore{}
	d, state, _, _ := newDispatcherUnderTest(t, store, models.QuestionTypeRadio)

	d.AnswerPoll(uuid.New(), "A")
	assert.Len(t, state.PollResponses, 0)
}
