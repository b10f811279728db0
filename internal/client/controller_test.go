package client

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlog/backend/internal/models"
)

type snapResp struct {
	snap *Snapshot
	err  error
}

// fakeStoreClient serves a scripted sequence of snapshot responses; the
// last entry repeats once the script runs out.
type fakeStoreClient struct {
	fakeWriteStore
	responses []snapResp
	notes     []models.Note
	block     chan struct{}
	calls     int
}

func (f *fakeStoreClient) Snapshot(ctx context.Context, token string) (*Snapshot, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	r := f.responses[i]
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return r.snap, r.err
}

func (f *fakeStoreClient) Notes(ctx context.Context, sessionID, testerID uuid.UUID) ([]models.Note, error) {
	return f.notes, nil
}

func (f *fakeStoreClient) snapshotCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func startController(t *testing.T, store *fakeStoreClient) (*Controller, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	ctrl := NewController(store, "tok-123", Options{Clock: fc})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ctrl.Run(ctx)
	return ctrl, fc
}

func waitUpdate(t *testing.T, ctrl *Controller) *State {
	t.Helper()
	select {
	case st := <-ctrl.Updates():
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state update")
		return nil
	}
}

func assertNoUpdate(t *testing.T, ctrl *Controller) {
	t.Helper()
	select {
	case st := <-ctrl.Updates():
		t.Fatalf("unexpected state update: phase %s", st.Phase)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestControllerCadenceSwitchAndSeedOnce(t *testing.T) {
	scenes := makeScenes("Hangar", "Runway")
	active := makeSnapshot(models.StatusActive, scenes, nil, nil)
	store := &fakeStoreClient{
		responses: []snapResp{
			{err: ErrNotStarted},
			{err: ErrNotStarted},
			{err: ErrNotStarted},
			{snap: active},
		},
		notes: []models.Note{{Content: "first note"}},
	}

	ctrl, fc := startController(t, store)

	// Initial fetch: not started, poll again in 3s.
	st := waitUpdate(t, ctrl)
	assert.Equal(t, PhaseNotStarted, st.Phase)
	assert.Equal(t, 0, st.FailedPolls, "425 is an expected steady state, not a failure")

	for i := 0; i < 2; i++ {
		fc.BlockUntil(1)
		fc.Advance(3 * time.Second)
		st = waitUpdate(t, ctrl)
		assert.Equal(t, PhaseNotStarted, st.Phase)
	}

	// Fourth poll goes active: local state seeds exactly once.
	fc.BlockUntil(1)
	fc.Advance(3 * time.Second)
	st = waitUpdate(t, ctrl)
	require.Equal(t, PhaseActive, st.Phase)
	assert.Equal(t, scenes[0].ID, st.SelectedSceneID)
	require.Len(t, st.Notes, 1)
	assert.Equal(t, 4, store.snapshotCalls())

	// Cadence is now 5s: advancing 3s must not poll.
	fc.BlockUntil(1)
	fc.Advance(3 * time.Second)
	assertNoUpdate(t, ctrl)
	assert.Equal(t, 4, store.snapshotCalls())

	fc.Advance(2 * time.Second)
	st = waitUpdate(t, ctrl)
	assert.Equal(t, PhaseActive, st.Phase)
	assert.Equal(t, 5, store.snapshotCalls())
}

func TestControllerEndedIsTerminal(t *testing.T) {
	active := makeSnapshot(models.StatusActive, makeScenes("Hangar"), nil, nil)
	store := &fakeStoreClient{
		responses: []snapResp{
			{snap: active},
			{err: ErrEnded},
		},
	}

	ctrl, fc := startController(t, store)

	st := waitUpdate(t, ctrl)
	require.Equal(t, PhaseActive, st.Phase)

	fc.BlockUntil(1)
	fc.Advance(5 * time.Second)
	st = waitUpdate(t, ctrl)
	assert.Equal(t, PhaseEnded, st.Phase)
	assert.Equal(t, 2, store.snapshotCalls())

	// Ended is terminal: neither time nor Retry resumes polling.
	ctrl.Retry()
	time.Sleep(50 * time.Millisecond)
	fc.Advance(time.Minute)
	assertNoUpdate(t, ctrl)
	assert.Equal(t, 2, store.snapshotCalls())
}

func TestControllerPermanentErrorStopsUntilRetry(t *testing.T) {
	active := makeSnapshot(models.StatusActive, makeScenes("Hangar"), nil, nil)
	store := &fakeStoreClient{
		responses: []snapResp{
			{err: ErrInvalidToken},
			{snap: active},
		},
	}

	ctrl, fc := startController(t, store)

	st := waitUpdate(t, ctrl)
	assert.Equal(t, 1, st.FailedPolls)

	// Polling is stopped: time passing fetches nothing.
	time.Sleep(50 * time.Millisecond)
	fc.Advance(time.Minute)
	assertNoUpdate(t, ctrl)
	assert.Equal(t, 1, store.snapshotCalls())

	// Manual retry resumes and succeeds.
	ctrl.Retry()
	st = waitUpdate(t, ctrl)
	assert.Equal(t, PhaseActive, st.Phase)
	assert.Equal(t, 0, st.FailedPolls)
	assert.Equal(t, 2, store.snapshotCalls())
}

func TestControllerTransientErrorKeepsPollingAndState(t *testing.T) {
	active := makeSnapshot(models.StatusActive, makeScenes("Hangar"), nil, nil)
	store := &fakeStoreClient{
		responses: []snapResp{
			{snap: active},
			{err: &APIError{Status: 500, Message: "boom"}},
			{snap: active},
		},
	}

	ctrl, fc := startController(t, store)

	st := waitUpdate(t, ctrl)
	require.Equal(t, PhaseActive, st.Phase)
	firstSync := st.LastSyncAt

	fc.BlockUntil(1)
	fc.Advance(5 * time.Second)
	st = waitUpdate(t, ctrl)
	assert.Equal(t, 1, st.FailedPolls)
	assert.Equal(t, PhaseActive, st.Phase, "last-known-good state survives a failed poll")
	assert.Equal(t, firstSync, st.LastSyncAt)

	fc.BlockUntil(1)
	fc.Advance(5 * time.Second)
	st = waitUpdate(t, ctrl)
	assert.Equal(t, 0, st.FailedPolls)
	assert.Equal(t, 3, store.snapshotCalls())
}

func TestControllerDropsTicksDuringFlight(t *testing.T) {
	block := make(chan struct{})
	store := &fakeStoreClient{
		responses: []snapResp{{err: ErrNotStarted}},
		block:     block,
	}

	ctrl, fc := startController(t, store)

	// The initial fetch is stuck in flight; a tick firing now must be
	// dropped, not queued.
	fc.BlockUntil(1)
	fc.Advance(3 * time.Second)
	time.Sleep(50 * time.Millisecond)

	store.mu.Lock()
	store.block = nil
	store.mu.Unlock()
	close(block)

	waitUpdate(t, ctrl)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.snapshotCalls(), "dropped tick must not queue a second fetch")

	fc.BlockUntil(1)
	fc.Advance(3 * time.Second)
	waitUpdate(t, ctrl)
	assert.Equal(t, 2, store.snapshotCalls())
}

func TestControllerActionsFlowThroughLoop(t *testing.T) {
	scenes := makeScenes("Hangar", "Runway")
	active := makeSnapshot(models.StatusActive, scenes, nil, nil)
	store := &fakeStoreClient{responses: []snapResp{{snap: active}}}

	ctrl, _ := startController(t, store)

	st := waitUpdate(t, ctrl)
	require.Equal(t, PhaseActive, st.Phase)

	ctrl.ToggleIssue("Crash")
	st = waitUpdate(t, ctrl)
	assert.True(t, st.ReportedIssues["Crash"])

	ctrl.SelectScene(scenes[1].ID)
	st = waitUpdate(t, ctrl)
	assert.Equal(t, scenes[1].ID, st.SelectedSceneID)
}
