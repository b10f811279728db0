package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/airlog/backend/internal/models"
)

// State is the device's working view of a session. Server-authoritative
// fields (phase, session, scenes, issue vocabulary, notes) are replaced
// wholesale on every snapshot; tester-owned fields (selected scene,
// reported issues, poll selections) are seeded from the server exactly
// once and after that belong to the device.
type State struct {
	Phase           Phase
	Session         *models.Session
	Scenes          []models.Scene
	IssueOptions    []string
	Tester          *models.Tester
	SelectedSceneID uuid.UUID
	ReportedIssues  map[string]bool
	PollResponses   map[uuid.UUID][]string
	Notes           []models.Note

	// LastSyncAt is the time of the last successful snapshot; the UI can
	// derive staleness from it. FailedPolls counts consecutive fetch
	// failures and resets on success.
	LastSyncAt  time.Time
	FailedPolls int

	sceneSeeded  bool
	issuesSeeded bool
	pollSeeded   bool
}

// NewState returns an empty, un-seeded state.
func NewState() *State {
	return &State{
		Phase:          PhaseNotStarted,
		ReportedIssues: make(map[string]bool),
		PollResponses:  make(map[uuid.UUID][]string),
	}
}

// applySnapshot merges a snapshot into the state. Seed-once fields are
// copied only the first time after (re)initialization; the server knows
// nothing about a tester's uncommitted UI state, so later snapshots must
// not clobber them.
func (s *State) applySnapshot(snap *Snapshot, now time.Time) {
	s.Session = &snap.Session.Session
	s.Scenes = snap.Session.Scenes
	s.IssueOptions = snap.Session.IssueOptions
	s.Tester = snap.Tester
	s.Phase = snap.Session.Phase()
	s.LastSyncAt = now
	s.FailedPolls = 0

	if !s.issuesSeeded {
		s.ReportedIssues = make(map[string]bool, len(snap.Tester.ReportedIssues))
		for _, issue := range snap.Tester.ReportedIssues {
			s.ReportedIssues[issue] = true
		}
		s.issuesSeeded = true
	}

	if !s.pollSeeded {
		s.PollResponses = make(map[uuid.UUID][]string, len(snap.PollResponses))
		for _, resp := range snap.PollResponses {
			s.PollResponses[resp.PollQuestionID] = append([]string(nil), resp.SelectedOptions...)
		}
		s.pollSeeded = true
	}

	if !s.sceneSeeded {
		if len(snap.Session.Scenes) > 0 {
			s.SelectedSceneID = snap.Session.Scenes[0].ID
		}
		s.sceneSeeded = true
		return
	}

	// Already seeded: keep the selected scene if it survived the new
	// scene list, otherwise fall back to the first scene.
	if s.findScene(s.SelectedSceneID) == nil {
		if len(s.Scenes) > 0 {
			s.SelectedSceneID = s.Scenes[0].ID
		} else {
			s.SelectedSceneID = uuid.Nil
		}
	}
}

// recordFailure counts a failed fetch; last-known-good state is kept.
func (s *State) recordFailure() {
	s.FailedPolls++
}

func (s *State) findScene(id uuid.UUID) *models.Scene {
	for i := range s.Scenes {
		if s.Scenes[i].ID == id {
			return &s.Scenes[i]
		}
	}
	return nil
}

// findQuestion locates a poll question across all scenes.
func (s *State) findQuestion(id uuid.UUID) *models.PollQuestion {
	for i := range s.Scenes {
		for j := range s.Scenes[i].PollQuestions {
			if s.Scenes[i].PollQuestions[j].ID == id {
				return &s.Scenes[i].PollQuestions[j]
			}
		}
	}
	return nil
}

// CurrentScene returns the selected scene, or nil before seeding.
func (s *State) CurrentScene() *models.Scene {
	return s.findScene(s.SelectedSceneID)
}

// ReportedIssueList returns the reported issues in the vocabulary's order,
// with any off-vocabulary leftovers appended.
func (s *State) ReportedIssueList() []string {
	list := make([]string, 0, len(s.ReportedIssues))
	seen := make(map[string]bool, len(s.ReportedIssues))
	for _, opt := range s.IssueOptions {
		if s.ReportedIssues[opt] {
			list = append(list, opt)
			seen[opt] = true
		}
	}
	for issue := range s.ReportedIssues {
		if s.ReportedIssues[issue] && !seen[issue] {
			list = append(list, issue)
		}
	}
	return list
}

// clone returns a deep copy safe to hand to another goroutine.
func (s *State) clone() *State {
	out := &State{
		Phase:           s.Phase,
		Scenes:          append([]models.Scene(nil), s.Scenes...),
		IssueOptions:    append([]string(nil), s.IssueOptions...),
		SelectedSceneID: s.SelectedSceneID,
		ReportedIssues:  make(map[string]bool, len(s.ReportedIssues)),
		PollResponses:   make(map[uuid.UUID][]string, len(s.PollResponses)),
		Notes:           append([]models.Note(nil), s.Notes...),
		LastSyncAt:      s.LastSyncAt,
		FailedPolls:     s.FailedPolls,
		sceneSeeded:     s.sceneSeeded,
		issuesSeeded:    s.issuesSeeded,
		pollSeeded:      s.pollSeeded,
	}
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	if s.Tester != nil {
		t := *s.Tester
		out.Tester = &t
	}
	for k, v := range s.ReportedIssues {
		out.ReportedIssues[k] = v
	}
	for k, v := range s.PollResponses {
		out.PollResponses[k] = append([]string(nil), v...)
	}
	return out
}
