package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionPhase(t *testing.T) {
	tests := []struct {
		status string
		want   Phase
	}{
		{StatusDraft, PhaseNotStarted},
		{StatusActive, PhaseActive},
		{StatusCompleted, PhaseEnded},
		{"", PhaseNotStarted},
		{"garbage", PhaseNotStarted},
	}
	for _, tt := range tests {
		s := &Session{Status: tt.status}
		assert.Equal(t, tt.want, s.Phase(), "status %q", tt.status)
	}
}

func TestPhaseAllowsFeedback(t *testing.T) {
	assert.True(t, PhaseActive.AllowsFeedback())
	assert.False(t, PhaseNotStarted.AllowsFeedback())
	assert.False(t, PhaseEnded.AllowsFeedback())
}
