package pollresponses

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
	"github.com/airlog/backend/internal/scenes"
	"github.com/airlog/backend/pkg/response"
)

// SaveRequest is the body for POST /sessions/:id/poll-responses. The
// selection always replaces whatever the tester answered before.
type SaveRequest struct {
	PollQuestionID  uuid.UUID `json:"poll_question_id" binding:"required"`
	TesterID        uuid.UUID `json:"tester_id" binding:"required"`
	SelectedOptions []string  `json:"selected_options"`
}

// Handler handles poll response HTTP endpoints.
type Handler struct {
	repo   *Repository
	scenes *scenes.Repository
	logger *zap.Logger
}

// NewHandler creates a poll responses handler.
func NewHandler(repo *Repository, scenesRepo *scenes.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, scenes: scenesRepo, logger: logger}
}

// Save handles POST /sessions/:id/poll-responses.
func (h *Handler) Save(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	q, err := h.scenes.GetQuestion(c.Request.Context(), req.PollQuestionID)
	if err != nil {
		response.NotFound(c, "poll question not found")
		return
	}

	if q.QuestionType == models.QuestionTypeRadio && len(req.SelectedOptions) > 1 {
		response.BadRequest(c, "radio questions take a single option")
		return
	}
	valid := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		valid[opt] = true
	}
	for _, opt := range req.SelectedOptions {
		if !valid[opt] {
			response.BadRequest(c, "option not in question: "+opt)
			return
		}
	}

	resp := &models.PollResponse{
		PollQuestionID:  req.PollQuestionID,
		TesterID:        req.TesterID,
		SelectedOptions: req.SelectedOptions,
	}
	if err := h.repo.Upsert(c.Request.Context(), resp); err != nil {
		h.logger.Error("save poll response failed", zap.Error(err),
			zap.String("question_id", req.PollQuestionID.String()),
			zap.String("tester_id", req.TesterID.String()))
		response.Internal(c, "failed to save poll response")
		return
	}
	response.OK(c, resp)
}

// List handles GET /sessions/:id/poll-responses with optional ?testerId=.
func (h *Handler) List(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	var testerID *uuid.UUID
	if raw := c.Query("testerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid tester id")
			return
		}
		testerID = &id
	}

	list, err := h.repo.ListBySession(c.Request.Context(), sessionID, testerID)
	if err != nil {
		h.logger.Error("list poll responses failed", zap.Error(err))
		response.Internal(c, "failed to list poll responses")
		return
	}
	response.OK(c, list)
}
