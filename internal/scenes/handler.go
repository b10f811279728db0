package scenes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
	"github.com/airlog/backend/pkg/response"
)

// CreateRequest is the body for POST /sessions/:id/scenes.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateRequest is the body for PATCH /sessions/:id/scenes. The scene is
// addressed in the body rather than the path.
type UpdateRequest struct {
	SceneID     uuid.UUID `json:"scene_id" binding:"required"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
}

// CreateQuestionRequest is the body for POST /sessions/:id/scenes/:sceneId/questions.
type CreateQuestionRequest struct {
	Question     string   `json:"question" binding:"required"`
	QuestionType string   `json:"question_type" binding:"required"`
	Options      []string `json:"options"`
	Required     bool     `json:"required"`
}

// Handler handles scene HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a scenes handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /sessions/:id/scenes.
func (h *Handler) Create(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	sc := &models.Scene{SessionID: sessionID, Name: req.Name, Description: req.Description}
	if err := h.repo.Create(c.Request.Context(), sc); err != nil {
		h.logger.Error("create scene failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to create scene")
		return
	}
	response.Created(c, sc)
}

// Update handles PATCH /sessions/:id/scenes.
func (h *Handler) Update(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	sc, err := h.repo.Update(c.Request.Context(), sessionID, req.SceneID, req.Name, req.Description)
	if err != nil {
		response.NotFound(c, "scene not found")
		return
	}
	response.OK(c, sc)
}

// Delete handles DELETE /sessions/:id/scenes?sceneId=.
func (h *Handler) Delete(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	sceneID, err := uuid.Parse(c.Query("sceneId"))
	if err != nil {
		response.BadRequest(c, "invalid scene id")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), sessionID, sceneID); err != nil {
		h.logger.Error("delete scene failed", zap.Error(err), zap.String("scene_id", sceneID.String()))
		response.Internal(c, "failed to delete scene")
		return
	}
	response.NoContent(c)
}

// CreateQuestion handles POST /sessions/:id/scenes/:sceneId/questions.
func (h *Handler) CreateQuestion(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	sceneID, err := uuid.Parse(c.Param("sceneId"))
	if err != nil {
		response.BadRequest(c, "invalid scene id")
		return
	}

	var req CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.QuestionType != models.QuestionTypeRadio && req.QuestionType != models.QuestionTypeCheckbox {
		response.BadRequest(c, "invalid question type: "+req.QuestionType)
		return
	}

	sc, err := h.repo.GetByID(c.Request.Context(), sceneID)
	if err != nil || sc.SessionID != sessionID {
		response.NotFound(c, "scene not found")
		return
	}

	q := &models.PollQuestion{
		SceneID:      sceneID,
		Question:     req.Question,
		QuestionType: req.QuestionType,
		Options:      req.Options,
		Required:     req.Required,
	}
	if err := h.repo.CreateQuestion(c.Request.Context(), q); err != nil {
		h.logger.Error("create poll question failed", zap.Error(err), zap.String("scene_id", sceneID.String()))
		response.Internal(c, "failed to create poll question")
		return
	}
	response.Created(c, q)
}
