package sessions

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
	"github.com/airlog/backend/internal/notes"
	"github.com/airlog/backend/internal/scenes"
	"github.com/airlog/backend/internal/testers"
	"github.com/airlog/backend/pkg/queue"
	"github.com/airlog/backend/pkg/response"
)

// Detail is the admin view of one session: scenes plus the testers and
// notes accumulated so far.
type Detail struct {
	models.SessionWithScenes
	Testers []models.Tester `json:"testers"`
	Notes   []models.Note   `json:"notes"`
}

// CreateQuestionInput is a nested poll question in a session create request.
type CreateQuestionInput struct {
	Question     string   `json:"question" binding:"required"`
	QuestionType string   `json:"question_type" binding:"required"`
	Options      []string `json:"options"`
	Required     bool     `json:"required"`
}

// CreateSceneInput is a nested scene in a session create request.
type CreateSceneInput struct {
	Name          string                `json:"name" binding:"required"`
	Description   string                `json:"description"`
	PollQuestions []CreateQuestionInput `json:"poll_questions"`
}

// CreateRequest is the body for POST /sessions. Scenes and their poll
// questions may be created inline in declaration order.
type CreateRequest struct {
	Name         string             `json:"name" binding:"required"`
	Description  string             `json:"description"`
	IssueOptions []string           `json:"issue_options"`
	Scenes       []CreateSceneInput `json:"scenes"`
}

// UpdateRequest is the body for PATCH /sessions/:id. Action drives the
// lifecycle; without an action the metadata fields are applied instead.
type UpdateRequest struct {
	Action       string    `json:"action"` // start | end | restart | generate_share_token | remove_share_token
	Name         *string   `json:"name"`
	Description  *string   `json:"description"`
	IssueOptions *[]string `json:"issue_options"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	repo    *Repository
	scenes  *scenes.Repository
	testers *testers.Repository
	notes   *notes.Repository
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewHandler creates a sessions handler. q may be nil when the worker queue
// is not configured; lifecycle events are then skipped.
func NewHandler(repo *Repository, scenesRepo *scenes.Repository, testersRepo *testers.Repository, notesRepo *notes.Repository, q *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, scenes: scenesRepo, testers: testersRepo, notes: notesRepo, queue: q, logger: logger}
}

// Create handles POST /sessions.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	for _, sc := range req.Scenes {
		for _, q := range sc.PollQuestions {
			if q.QuestionType != models.QuestionTypeRadio && q.QuestionType != models.QuestionTypeCheckbox {
				response.BadRequest(c, "invalid question type: "+q.QuestionType)
				return
			}
		}
	}

	ctx := c.Request.Context()
	s := &models.Session{
		Name:         req.Name,
		Description:  req.Description,
		IssueOptions: req.IssueOptions,
	}
	if err := h.repo.Create(ctx, s); err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}

	for _, scIn := range req.Scenes {
		sc := &models.Scene{SessionID: s.ID, Name: scIn.Name, Description: scIn.Description}
		if err := h.scenes.Create(ctx, sc); err != nil {
			h.logger.Error("create scene failed", zap.Error(err), zap.String("session_id", s.ID.String()))
			response.Internal(c, "failed to create scene")
			return
		}
		for _, qIn := range scIn.PollQuestions {
			q := &models.PollQuestion{
				SceneID:      sc.ID,
				Question:     qIn.Question,
				QuestionType: qIn.QuestionType,
				Options:      qIn.Options,
				Required:     qIn.Required,
			}
			if err := h.scenes.CreateQuestion(ctx, q); err != nil {
				h.logger.Error("create poll question failed", zap.Error(err), zap.String("scene_id", sc.ID.String()))
				response.Internal(c, "failed to create poll question")
				return
			}
		}
	}

	full, err := h.repo.GetWithScenes(ctx, s.ID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	response.Created(c, full)
}

// GetByID handles GET /sessions/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	ctx := c.Request.Context()
	s, err := h.repo.GetWithScenes(ctx, id)
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}

	testerList, err := h.testers.ListBySession(ctx, id)
	if err != nil {
		h.logger.Error("list session testers failed", zap.Error(err), zap.String("session_id", id.String()))
		response.Internal(c, "failed to load session")
		return
	}
	noteList, err := h.notes.ListBySession(ctx, id, nil)
	if err != nil {
		h.logger.Error("list session notes failed", zap.Error(err), zap.String("session_id", id.String()))
		response.Internal(c, "failed to load session")
		return
	}
	if testerList == nil {
		testerList = []models.Tester{}
	}

	response.OK(c, Detail{SessionWithScenes: *s, Testers: testerList, Notes: noteList})
}

// List handles GET /sessions.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	if list == nil {
		list = []models.Session{}
	}
	response.OK(c, list)
}

// Update handles PATCH /sessions/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case "":
		var issues []string
		if req.IssueOptions != nil {
			issues = *req.IssueOptions
			if issues == nil {
				issues = []string{}
			}
		}
		s, err := h.repo.UpdateMeta(ctx, id, req.Name, req.Description, issues)
		if err != nil {
			response.NotFound(c, "session not found")
			return
		}
		response.OK(c, s)

	case "start":
		cur, err := h.repo.GetByID(ctx, id)
		if err != nil {
			response.NotFound(c, "session not found")
			return
		}
		if cur.Status == models.StatusActive {
			response.Conflict(c, "session already active")
			return
		}
		if cur.Status == models.StatusCompleted {
			response.Conflict(c, "session has ended; use restart")
			return
		}
		s, err := h.repo.Start(ctx, id)
		if err != nil {
			response.Internal(c, "failed to start session")
			return
		}
		h.enqueueEvent(c, id, queue.SessionEventStarted)
		response.OK(c, s)

	case "end":
		cur, err := h.repo.GetByID(ctx, id)
		if err != nil {
			response.NotFound(c, "session not found")
			return
		}
		if cur.Status != models.StatusActive {
			response.Conflict(c, "session is not active")
			return
		}
		s, err := h.repo.End(ctx, id)
		if err != nil {
			response.Internal(c, "failed to end session")
			return
		}
		h.enqueueEvent(c, id, queue.SessionEventEnded)
		response.OK(c, s)

	case "restart":
		s, err := h.repo.Restart(ctx, id)
		if err != nil {
			response.Conflict(c, "only an ended session can be restarted")
			return
		}
		h.enqueueEvent(c, id, queue.SessionEventStarted)
		response.OK(c, s)

	case "generate_share_token":
		token, err := generateShareToken()
		if err != nil {
			response.Internal(c, "failed to generate share token")
			return
		}
		s, err := h.repo.SetShareToken(ctx, id, &token)
		if err != nil {
			response.NotFound(c, "session not found")
			return
		}
		response.OK(c, s)

	case "remove_share_token":
		s, err := h.repo.SetShareToken(ctx, id, nil)
		if err != nil {
			response.NotFound(c, "session not found")
			return
		}
		response.OK(c, s)

	default:
		response.BadRequest(c, "unknown action: "+req.Action)
	}
}

// Delete handles DELETE /sessions/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete session failed", zap.Error(err), zap.String("session_id", id.String()))
		response.Internal(c, "failed to delete session")
		return
	}
	response.NoContent(c)
}

// enqueueEvent hands the lifecycle event to the worker. Enqueue failures are
// logged, not surfaced; the lifecycle change itself already committed.
func (h *Handler) enqueueEvent(c *gin.Context, sessionID uuid.UUID, event string) {
	if h.queue == nil {
		return
	}
	payload := queue.SessionEventPayload{SessionID: sessionID, Event: event}
	if err := h.queue.EnqueueSessionEvent(c.Request.Context(), payload); err != nil {
		h.logger.Error("enqueue session event failed", zap.Error(err),
			zap.String("session_id", sessionID.String()), zap.String("event", event))
	}
}

func generateShareToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
