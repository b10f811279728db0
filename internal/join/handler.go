package join

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
	"github.com/airlog/backend/internal/pollresponses"
	"github.com/airlog/backend/internal/sessions"
	"github.com/airlog/backend/internal/testers"
	"github.com/airlog/backend/pkg/response"
)

// Snapshot is the join payload: everything a device needs to render one
// tester's view of a live session.
type Snapshot struct {
	Tester        *models.Tester            `json:"tester"`
	Session       *models.SessionWithScenes `json:"session"`
	PollResponses []models.PollResponse     `json:"poll_responses"`
}

// Handler serves the tester-facing join endpoint.
type Handler struct {
	testers   *testers.Repository
	sessions  *sessions.Repository
	responses *pollresponses.Repository
	logger    *zap.Logger
}

// NewHandler creates a join handler.
func NewHandler(testersRepo *testers.Repository, sessionsRepo *sessions.Repository, responsesRepo *pollresponses.Repository, logger *zap.Logger) *Handler {
	return &Handler{testers: testersRepo, sessions: sessionsRepo, responses: responsesRepo, logger: logger}
}

// Get handles GET /join/:token. Devices poll this endpoint; the status code
// encodes the session phase so a client can dispatch without parsing:
// 404 invalid token, 425 not started yet, 410 ended, 200 active snapshot.
func (h *Handler) Get(c *gin.Context) {
	// Polled data must never come from an intermediary cache.
	c.Header("Cache-Control", "no-store")

	token := c.Param("token")
	if token == "" {
		response.NotFound(c, "invalid invite token")
		return
	}

	ctx := c.Request.Context()
	tester, err := h.testers.GetByInviteToken(ctx, token)
	if err != nil {
		response.NotFound(c, "invalid invite token")
		return
	}

	session, err := h.sessions.GetWithScenes(ctx, tester.SessionID)
	if err != nil {
		h.logger.Error("load session for join failed", zap.Error(err), zap.String("session_id", tester.SessionID.String()))
		response.Internal(c, "failed to load session")
		return
	}

	switch session.Phase() {
	case models.PhaseEnded:
		response.Gone(c, "session has ended")
		return
	case models.PhaseNotStarted:
		response.TooEarly(c, "session has not started")
		return
	}

	polls, err := h.responses.ListByTester(ctx, tester.ID)
	if err != nil {
		h.logger.Error("load poll responses for join failed", zap.Error(err), zap.String("tester_id", tester.ID.String()))
		response.Internal(c, "failed to load poll responses")
		return
	}

	response.OK(c, Snapshot{Tester: tester, Session: session, PollResponses: polls})
}
