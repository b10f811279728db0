package testers

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
	"github.com/airlog/backend/pkg/response"
)

// CreateRequest is the body for POST /sessions/:id/testers.
type CreateRequest struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	Email     *string `json:"email"`
}

// UpdateRequest is the body for PATCH /sessions/:id/testers/:testerId.
// All fields are optional; only the ones present are applied. The device
// client sends reported_issues as the complete set, never a delta.
type UpdateRequest struct {
	FirstName      *string   `json:"first_name"`
	LastName       *string   `json:"last_name"`
	Email          *string   `json:"email"`
	ReportedIssues *[]string `json:"reported_issues"`
}

// Handler handles tester HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a testers handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /sessions/:id/testers.
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

	token, err := generateToken()
	if err != nil {
		response.Internal(c, "failed to generate invite token")
		return
	}

	t := &models.Tester{
		SessionID:   sessionID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		InviteToken: token,
	}
	if err := h.repo.Create(c.Request.Context(), t); err != nil {
		h.logger.Error("create tester failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to create tester")
		return
	}

	response.Created(c, t)
}

// List handles GET /sessions/:id/testers.
func (h *Handler) List(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	list, err := h.repo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("list testers failed", zap.Error(err))
		response.Internal(c, "failed to list testers")
		return
	}
	if list == nil {
		list = []models.Tester{}
	}
	response.OK(c, list)
}

// Update handles PATCH /sessions/:id/testers/:testerId. This is the write
// path the device client uses to sync its reported-issue toggles; the same
// route also serves admin profile edits.
func (h *Handler) Update(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	testerID, err := uuid.Parse(c.Param("testerId"))
	if err != nil {
		response.BadRequest(c, "invalid tester id")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	var t *models.Tester

	if req.ReportedIssues != nil {
		t, err = h.repo.UpdateReportedIssues(ctx, sessionID, testerID, *req.ReportedIssues)
		if err != nil {
			response.NotFound(c, "tester not found")
			return
		}
	}
	if req.FirstName != nil || req.LastName != nil || req.Email != nil {
		t, err = h.repo.UpdateProfile(ctx, sessionID, testerID, req.FirstName, req.LastName, req.Email)
		if err != nil {
			response.NotFound(c, "tester not found")
			return
		}
	}
	if t == nil {
		t, err = h.repo.GetByID(ctx, testerID)
		if err != nil || t.SessionID != sessionID {
			response.NotFound(c, "tester not found")
			return
		}
	}

	response.OK(c, t)
}

// Delete handles DELETE /sessions/:id/testers/:testerId.
func (h *Handler) Delete(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	testerID, err := uuid.Parse(c.Param("testerId"))
	if err != nil {
		response.BadRequest(c, "invalid tester id")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), sessionID, testerID); err != nil {
		h.logger.Error("delete tester failed", zap.Error(err))
		response.Internal(c, "failed to delete tester")
		return
	}
	response.NoContent(c)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:43], nil
}
