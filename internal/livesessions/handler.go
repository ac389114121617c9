package livesessions

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-learn/backend/internal/auth"
	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/mediakey"
	"github.com/aura-learn/backend/internal/middleware"
	"github.com/aura-learn/backend/internal/models"
	"github.com/aura-learn/backend/pkg/response"
)

// CreateRequest is the body for POST /live-sessions.
type CreateRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	CourseID    string     `json:"course_id" binding:"omitempty,uuid"`
	MaxViewers  int        `json:"max_viewers"`
	IsPublic    bool       `json:"is_public"`
	IsRecording bool       `json:"is_recording"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// UpdateRequest is the body for PATCH /live-sessions/:id. Omitted fields are unchanged.
type UpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	MaxViewers  *int       `json:"max_viewers"`
	IsPublic    *bool      `json:"is_public"`
	IsRecording *bool      `json:"is_recording"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// PermissionsRequest is the body for PATCH /live-sessions/:id/participants/:userId.
type PermissionsRequest struct {
	CanChat         *bool `json:"can_chat"`
	CanAskQuestions *bool `json:"can_ask_questions"`
}

// TranscriptKeys looks up where a session's transcript was archived.
type TranscriptKeys interface {
	TranscriptKey(ctx context.Context, id uuid.UUID) (string, error)
}

// Presigner signs transcript download URLs.
type Presigner interface {
	PresignedDownloadURL(ctx context.Context, key string) (string, error)
	PresignExpire() time.Duration
}

type createdSession struct {
	models.StreamSession
	mediakey.Key
}

// Handler handles live session HTTP endpoints.
type Handler struct {
	engine      *live.Engine
	keys        *mediakey.Issuer
	transcripts TranscriptKeys
	s3          Presigner
	logger      *zap.Logger
}

// NewHandler creates a live session handler. transcripts and s3 may be nil when archiving is not configured.
func NewHandler(engine *live.Engine, keys *mediakey.Issuer, transcripts TranscriptKeys, s3 Presigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, keys: keys, transcripts: transcripts, s3: s3, logger: logger}
}

// ParseID reads the uuid route parameter name, answering 400 when it is malformed.
func ParseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /live-sessions (instructor/admin). The stream key is returned once.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := middleware.UserID(c)

	in := live.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Capacity:    req.MaxViewers,
		IsPublic:    req.IsPublic,
		IsRecording: req.IsRecording,
		ScheduledAt: req.ScheduledAt,
	}
	if req.CourseID != "" {
		in.CourseID = uuid.MustParse(req.CourseID)
	}
	s, err := h.engine.CreateSession(c.Request.Context(), userID, in)
	if err != nil {
		Fail(c, err)
		return
	}

	key, err := h.keys.Issue(s.ID)
	if err != nil {
		h.logger.Error("issue stream key failed", zap.Error(err), zap.String("session_id", s.ID.String()))
		response.Internal(c, "failed to issue stream key")
		return
	}
	if err := h.engine.SetStreamKeyHash(c.Request.Context(), s.ID, userID, key.Hash); err != nil {
		Fail(c, err)
		return
	}
	response.Created(c, createdSession{StreamSession: s, Key: key})
}

// List handles GET /live-sessions (scheduled and live sessions).
func (h *Handler) List(c *gin.Context) {
	response.OK(c, gin.H{"streams": h.engine.ListActive()})
}

// Get handles GET /live-sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	s, err := h.engine.GetSession(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, s)
}

// Update handles PATCH /live-sessions/:id (owner, scheduled only).
func (h *Handler) Update(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.engine.UpdateSession(c.Request.Context(), id, middleware.UserID(c), live.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Capacity:    req.MaxViewers,
		IsPublic:    req.IsPublic,
		IsRecording: req.IsRecording,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, s)
}

// Start handles POST /live-sessions/:id/start.
func (h *Handler) Start(c *gin.Context) {
	h.transition(c, h.engine.Start)
}

// Stop handles POST /live-sessions/:id/stop.
func (h *Handler) Stop(c *gin.Context) {
	h.transition(c, h.engine.Stop)
}

// Cancel handles POST /live-sessions/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.engine.Cancel)
}

func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, id, actor uuid.UUID) (models.StreamSession, error)) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	s, err := op(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, s)
}

// Join handles POST /live-sessions/:id/join.
func (h *Handler) Join(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	p, err := h.engine.Join(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, p)
}

// Leave handles POST /live-sessions/:id/leave.
func (h *Handler) Leave(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	p, err := h.engine.Leave(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, p)
}

// Stats handles GET /live-sessions/:id/stats.
func (h *Handler) Stats(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	s, err := h.engine.Stats(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, s)
}

// Participants handles GET /live-sessions/:id/participants (owner).
func (h *Handler) Participants(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	list, err := h.engine.Participants(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, gin.H{"participants": list})
}

// SetPermissions handles PATCH /live-sessions/:id/participants/:userId (owner).
func (h *Handler) SetPermissions(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	user, ok := ParseID(c, "userId")
	if !ok {
		return
	}
	var req PermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.engine.SetPermissions(c.Request.Context(), id, middleware.UserID(c), user, live.PermissionsInput{
		CanChat:         req.CanChat,
		CanAskQuestions: req.CanAskQuestions,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, p)
}

// RotateKey handles POST /live-sessions/:id/stream-key (owner). The old key stops working immediately.
func (h *Handler) RotateKey(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	key, err := h.keys.Issue(id)
	if err != nil {
		h.logger.Error("issue stream key failed", zap.Error(err), zap.String("session_id", id.String()))
		response.Internal(c, "failed to issue stream key")
		return
	}
	if err := h.engine.SetStreamKeyHash(c.Request.Context(), id, middleware.UserID(c), key.Hash); err != nil {
		Fail(c, err)
		return
	}
	response.OK(c, key)
}

// Transcript handles GET /live-sessions/:id/transcript (owner/admin): a presigned download URL.
func (h *Handler) Transcript(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	s, err := h.engine.GetSession(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if s.InstructorID != middleware.UserID(c) && c.GetString(middleware.ContextUserRole) != auth.RoleAdmin {
		response.Forbidden(c, "not authorized to download this transcript")
		return
	}
	if h.transcripts == nil || h.s3 == nil {
		response.ServiceUnavailable(c, "transcripts not configured")
		return
	}
	key, err := h.transcripts.TranscriptKey(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("load transcript key failed", zap.Error(err), zap.String("session_id", id.String()))
		response.Internal(c, "failed to load transcript")
		return
	}
	if key == "" {
		response.NotFound(c, "transcript not ready")
		return
	}
	url, err := h.s3.PresignedDownloadURL(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("presign transcript download failed", zap.Error(err), zap.String("session_id", id.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(h.s3.PresignExpire().Seconds())})
}

// OnPublish handles POST /media/on_publish from the RTMP ingest server. The stream name is the
// session id and key is the plain stream key; any non-2xx answer rejects the publish.
func (h *Handler) OnPublish(c *gin.Context) {
	name, key := c.PostForm("name"), c.PostForm("key")
	id, err := uuid.Parse(name)
	if err != nil {
		response.Forbidden(c, "unknown stream")
		return
	}
	s, err := h.engine.GetSession(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("publish rejected", zap.String("session_id", name), zap.Error(err))
		response.Forbidden(c, "unknown stream")
		return
	}
	if !s.Status.Open() {
		response.Forbidden(c, "stream is "+string(s.Status))
		return
	}
	if !mediakey.Verify(key, s.StreamKeyHash) {
		h.logger.Warn("publish rejected: bad stream key", zap.String("session_id", name))
		response.Forbidden(c, "invalid stream key")
		return
	}
	h.logger.Info("publish accepted", zap.String("session_id", name))
	response.OK(c, gin.H{"stream_id": s.ID})
}
