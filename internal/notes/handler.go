package notes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
	"github.com/airlog/backend/pkg/response"
	"github.com/airlog/backend/pkg/storage"
)

// CreateRequest is the body for POST /sessions/:id/notes.
type CreateRequest struct {
	SceneID  uuid.UUID `json:"scene_id" binding:"required"`
	TesterID uuid.UUID `json:"tester_id" binding:"required"`
	Content  string    `json:"content"`
	AudioURL *string   `json:"audio_url"`
	S3Key    *string   `json:"s3_key"`
}

// UpdateRequest is the body for PATCH /sessions/:id/notes/:noteId.
type UpdateRequest struct {
	Content  *string `json:"content"`
	AudioURL *string `json:"audio_url"`
	S3Key    *string `json:"s3_key"`
}

// UploadURLRequest is the body for POST /sessions/:id/notes/upload-url.
type UploadURLRequest struct {
	NoteID      uuid.UUID `json:"note_id" binding:"required"`
	Filename    string    `json:"filename" binding:"required"`
	ContentType string    `json:"content_type"`
}

// Handler handles note HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a notes handler. s3 may be nil when audio storage is
// not configured; audio endpoints then answer 503.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// Create handles POST /sessions/:id/notes.
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
	if req.Content == "" && req.AudioURL == nil {
		response.BadRequest(c, "note needs content or an audio attachment")
		return
	}

	n := &models.Note{
		SessionID: sessionID,
		SceneID:   req.SceneID,
		TesterID:  req.TesterID,
		Content:   req.Content,
		AudioURL:  req.AudioURL,
		S3Key:     req.S3Key,
	}
	if err := h.repo.Create(c.Request.Context(), n); err != nil {
		h.logger.Error("create note failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to create note")
		return
	}
	response.Created(c, n)
}

// List handles GET /sessions/:id/notes with optional ?testerId=.
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
		h.logger.Error("list notes failed", zap.Error(err))
		response.Internal(c, "failed to list notes")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /sessions/:id/notes/:noteId.
func (h *Handler) Update(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	noteID, err := uuid.Parse(c.Param("noteId"))
	if err != nil {
		response.BadRequest(c, "invalid note id")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	n, err := h.repo.Update(c.Request.Context(), sessionID, noteID, req.Content, req.AudioURL, req.S3Key)
	if err != nil {
		response.NotFound(c, "note not found")
		return
	}
	response.OK(c, n)
}

// Delete handles DELETE /sessions/:id/notes/:noteId. Deletes the S3 audio
// object too when the note has one.
func (h *Handler) Delete(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	noteID, err := uuid.Parse(c.Param("noteId"))
	if err != nil {
		response.BadRequest(c, "invalid note id")
		return
	}

	ctx := c.Request.Context()
	n, err := h.repo.GetByID(ctx, noteID)
	if err != nil || n.SessionID != sessionID {
		response.NotFound(c, "note not found")
		return
	}

	if err := h.repo.Delete(ctx, sessionID, noteID); err != nil {
		h.logger.Error("delete note failed", zap.Error(err), zap.String("note_id", noteID.String()))
		response.Internal(c, "failed to delete note")
		return
	}
	if h.s3 != nil && n.S3Key != nil {
		if err := h.s3.DeleteObject(ctx, *n.S3Key); err != nil {
			h.logger.Warn("delete note audio from S3 failed", zap.Error(err), zap.String("s3_key", *n.S3Key))
		}
	}
	response.NoContent(c)
}

// GenerateUploadURL handles POST /sessions/:id/notes/upload-url. Returns a
// presigned PUT URL so the device uploads audio straight to S3.
func (h *Handler) GenerateUploadURL(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "audio storage not configured")
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}
	if !storage.ValidateAudioFileType(contentType, req.Filename) {
		response.BadRequest(c, "unsupported audio file type")
		return
	}

	key := storage.NoteAudioKey(sessionID.String(), req.NoteID.String(), req.Filename)
	expire := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, contentType, expire)
	if err != nil {
		h.logger.Error("presign note audio upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to generate upload URL")
		return
	}

	response.OK(c, gin.H{
		"upload_url":   url,
		"s3_key":       key,
		"audio_url":    h.s3.PublicObjectURL(key),
		"content_type": contentType,
		"expires_in":   int(expire.Seconds()),
	})
}

// UploadAudio handles POST /sessions/:id/notes/:noteId/audio. Accepts a
// multipart file for devices that cannot use the presigned PUT path.
func (h *Handler) UploadAudio(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "audio storage not configured")
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	noteID, err := uuid.Parse(c.Param("noteId"))
	if err != nil {
		response.BadRequest(c, "invalid note id")
		return
	}

	ctx := c.Request.Context()
	n, err := h.repo.GetByID(ctx, noteID)
	if err != nil || n.SessionID != sessionID {
		response.NotFound(c, "note not found")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if file.Size > storage.MaxAudioFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(file.Filename)
	}
	if !storage.ValidateAudioFileType(contentType, file.Filename) {
		response.BadRequest(c, "unsupported audio file type")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}
	defer f.Close()

	key := storage.NoteAudioKey(sessionID.String(), noteID.String(), file.Filename)
	url, err := h.s3.Upload(ctx, key, contentType, f)
	if err != nil {
		h.logger.Error("upload note audio to S3 failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to upload audio")
		return
	}

	updated, err := h.repo.Update(ctx, sessionID, noteID, nil, &url, &key)
	if err != nil {
		h.logger.Error("attach audio to note failed", zap.Error(err), zap.String("note_id", noteID.String()))
		response.Internal(c, "failed to attach audio")
		return
	}
	response.OK(c, updated)
}
