package notifications

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airlog/backend/pkg/response"
)

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// ListByTester handles GET /testers/:testerId/notifications.
func (h *Handler) ListByTester(c *gin.Context) {
	testerID, err := uuid.Parse(c.Param("testerId"))
	if err != nil {
		response.BadRequest(c, "invalid tester id")
		return
	}

	list, err := h.repo.ListByTester(c.Request.Context(), testerID)
	if err != nil {
		h.logger.Error("list notifications failed", zap.Error(err))
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, list)
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	if err := h.repo.MarkRead(c.Request.Context(), id); err != nil {
		h.logger.Error("mark notification read failed", zap.Error(err))
		response.Internal(c, "failed to mark notification read")
		return
	}
	response.NoContent(c)
}
