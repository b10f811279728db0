package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlog/backend/internal/models"
)

func makeSnapshot(status string, scenes []models.Scene, tester *models.Tester, polls []models.PollResponse) *Snapshot {
	if tester == nil {
		tester = &models.Tester{ID: uuid.New(), SessionID: uuid.New(), FirstName: "Ada"}
	}
	return &Snapshot{
		Tester: tester,
		Session: &models.SessionWithScenes{
			Session: models.Session{
				ID:           tester.SessionID,
				Name:         "Flight 12 build",
				Status:       status,
				IssueOptions: []string{"Audio issues", "Crash", "Visual glitch"},
			},
			Scenes: scenes,
		},
		PollResponses: polls,
	}
}

func makeScenes(names ...string) []models.Scene {
	scenes := make([]models.Scene, len(names))
	for i, name := range names {
		scenes[i] = models.Scene{ID: uuid.New(), Name: name, OrderIndex: i}
	}
	return scenes
}

func TestApplySnapshotSeedsOnce(t *testing.T) {
	state := NewState()
	scenes := makeScenes("Hangar", "Runway")
	tester := &models.Tester{ID: uuid.New(), SessionID: uuid.New(), ReportedIssues: []string{"Crash"}}
	qID := uuid.New()
	polls := []models.PollResponse{{PollQuestionID: qID, TesterID: tester.ID, SelectedOptions: []string{"Yes"}}}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	state.applySnapshot(makeSnapshot(models.StatusActive, scenes, tester, polls), now)

	assert.Equal(t, PhaseActive, state.Phase)
	assert.Equal(t, scenes[0].ID, state.SelectedSceneID)
	assert.True(t, state.ReportedIssues["Crash"])
	assert.Equal(t, []string{"Yes"}, state.PollResponses[qID])
	assert.Equal(t, now, state.LastSyncAt)

	// Local edits after the first snapshot.
	state.SelectedSceneID = scenes[1].ID
	state.ReportedIssues["Audio issues"] = true
	state.PollResponses[qID] = []string{"No"}

	// A later snapshot with different server-side values must not clobber
	// the tester-owned fields.
	tester2 := &models.Tester{ID: tester.ID, SessionID: tester.SessionID, ReportedIssues: []string{}}
	state.applySnapshot(makeSnapshot(models.StatusActive, scenes, tester2, nil), now.Add(5*time.Second))

	assert.Equal(t, scenes[1].ID, state.SelectedSceneID)
	assert.True(t, state.ReportedIssues["Audio issues"])
	assert.True(t, state.ReportedIssues["Crash"])
	assert.Equal(t, []string{"No"}, state.PollResponses[qID])
}

func TestApplySnapshotSelectedScenePreserved(t *testing.T) {
	state := NewState()
	scenes := makeScenes("Hangar", "Runway", "Tower")
	snap := makeSnapshot(models.StatusActive, scenes, nil, nil)
	state.applySnapshot(snap, time.Now())

	state.SelectedSceneID = scenes[2].ID

	// Scene list changes but the selected scene survives.
	reordered := []models.Scene{scenes[2], scenes[0]}
	snap2 := makeSnapshot(models.StatusActive, reordered, snap.Tester, nil)
	state.applySnapshot(snap2, time.Now())
	assert.Equal(t, scenes[2].ID, state.SelectedSceneID)

	// Selected scene removed: fall back to the first scene.
	snap3 := makeSnapshot(models.StatusActive, []models.Scene{scenes[0]}, snap.Tester, nil)
	state.applySnapshot(snap3, time.Now())
	assert.Equal(t, scenes[0].ID, state.SelectedSceneID)
}

func TestApplySnapshotReplacesAuthoritativeFields(t *testing.T) {
	state := NewState()
	scenes := makeScenes("Hangar")
	snap := makeSnapshot(models.StatusActive, scenes, nil, nil)
	state.applySnapshot(snap, time.Now())

	snap2 := makeSnapshot(models.StatusActive, makeScenes("Runway", "Tower"), snap.Tester, nil)
	snap2.Session.IssueOptions = []string{"New vocab"}
	state.applySnapshot(snap2, time.Now())

	assert.Len(t, state.Scenes, 2)
	assert.Equal(t, []string{"New vocab"}, state.IssueOptions)
}

func TestRecordFailureKeepsState(t *testing.T) {
	state := NewState()
	snap := makeSnapshot(models.StatusActive, makeScenes("Hangar"), nil, nil)
	state.applySnapshot(snap, time.Now())

	state.recordFailure()
	state.recordFailure()
	assert.Equal(t, 2, state.FailedPolls)
	assert.Equal(t, PhaseActive, state.Phase)
	require.NotNil(t, state.Session)

	// Success resets the failure counter.
	state.applySnapshot(snap, time.Now())
	assert.Equal(t, 0, state.FailedPolls)
}

func TestReportedIssueListVocabularyOrder(t *testing.T) {
	state := NewState()
	state.IssueOptions = []string{"A", "B", "C"}
	state.ReportedIssues = map[string]bool{"C": true, "A": true}
	assert.Equal(t, []string{"A", "C"}, state.ReportedIssueList())
}

func TestCloneIsDeep(t *testing.T) {
	state := NewState()
	qID := uuid.New()
	snap := makeSnapshot(models.StatusActive, makeScenes("Hangar"), nil,
		[]models.PollResponse{{PollQuestionID: qID, SelectedOptions: []string{"Yes"}}})
	state.applySnapshot(snap, time.Now())
	state.ReportedIssues["Crash"] = true

	copied := state.clone()
	copied.ReportedIssues["Crash"] = false
	copied.PollResponses[qID][0] = "No"
	copied.Scenes[0].Name = "changed"

	assert.True(t, state.ReportedIssues["Crash"])
	assert.Equal(t, []string{"Yes"}, state.PollResponses[qID])
	assert.Equal(t, "Hangar", state.Scenes[0].Name)
}
