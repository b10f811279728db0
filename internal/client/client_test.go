package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlog/backend/internal/models"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": errMsg == ""}
	if data != nil {
		body["data"] = data
	}
	if errMsg != "" {
		body["error"] = errMsg
	}
	_ = json.NewEncoder(w).Encode(body)
}

func TestSnapshotDecodesAndCacheBusts(t *testing.T) {
	snap := makeSnapshot(models.StatusActive, makeScenes("Hangar"), nil, nil)

	var seenT []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/join/tok-abc", r.URL.Path)
		n, err := strconv.Atoi(r.URL.Query().Get("t"))
		require.NoError(t, err)
		seenT = append(seenT, n)
		writeEnvelope(w, http.StatusOK, snap, "")
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	ctx := context.Background()

	got, err := c.Snapshot(ctx, "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, snap.Session.ID, got.Session.ID)
	assert.Equal(t, models.StatusActive, got.Session.Status)
	assert.Equal(t, snap.Tester.ID, got.Tester.ID)

	_, err = c.Snapshot(ctx, "tok-abc")
	require.NoError(t, err)

	require.Len(t, seenT, 2)
	assert.Greater(t, seenT[1], seenT[0], "cache-busting value must increase monotonically")
}

func TestSnapshotStatusDispatch(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not started", http.StatusTooEarly, ErrNotStarted},
		{"ended", http.StatusGone, ErrEnded},
		{"invalid token", http.StatusNotFound, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, nil, "nope")
			}))
			defer srv.Close()

			c := New(srv.URL, time.Second)
			_, err := c.Snapshot(context.Background(), "tok")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSnapshotServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, nil, "boom")
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Snapshot(context.Background(), "tok")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
	assert.False(t, apiErr.Permanent())
}

func TestSnapshotEmptyTokenRejectedLocally(t *testing.T) {
	c := New("http://localhost:0", time.Second)
	_, err := c.Snapshot(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateReportedIssuesSendsFullSet(t *testing.T) {
	sessionID := uuid.New()
	testerID := uuid.New()

	var gotBody map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/sessions/"+sessionID.String()+"/testers/"+testerID.String(), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeEnvelope(w, http.StatusOK, map[string]any{}, "")
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	err := c.UpdateReportedIssues(context.Background(), sessionID, testerID, []string{"Crash", "Audio issues"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Crash", "Audio issues"}, gotBody["reported_issues"])
}

func TestSavePollResponseBody(t *testing.T) {
	sessionID := uuid.New()
	questionID := uuid.New()
	testerID := uuid.New()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sessions/"+sessionID.String()+"/poll-responses", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeEnvelope(w, http.StatusOK, map[string]any{}, "")
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	err := c.SavePollResponse(context.Background(), sessionID, questionID, testerID, []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, questionID.String(), gotBody["poll_question_id"])
	assert.Equal(t, testerID.String(), gotBody["tester_id"])
	assert.Equal(t, []any{"B"}, gotBody["selected_options"])
}

func TestNotesFetch(t *testing.T) {
	sessionID := uuid.New()
	testerID := uuid.New()
	notes := []models.Note{{ID: uuid.New(), SessionID: sessionID, TesterID: testerID, Content: "door clips through wall"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/"+sessionID.String()+"/notes", r.URL.Path)
		assert.Equal(t, testerID.String(), r.URL.Query().Get("testerId"))
		writeEnvelope(w, http.StatusOK, notes, "")
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	got, err := c.Notes(context.Background(), sessionID, testerID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "door clips through wall", got[0].Content)
}
