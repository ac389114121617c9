package chat

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/livesessions"
	"github.com/aura-learn/backend/internal/middleware"
	"github.com/aura-learn/backend/internal/models"
	"github.com/aura-learn/backend/pkg/response"
)

// PostRequest is the body for POST /live-sessions/:id/chat.
type PostRequest struct {
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}

// VisibilityRequest is the body for PATCH /live-sessions/:id/chat/:seq.
type VisibilityRequest struct {
	Visible *bool `json:"is_visible" binding:"required"`
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	engine *live.Engine
}

// NewHandler creates a chat handler.
func NewHandler(engine *live.Engine) *Handler {
	return &Handler{engine: engine}
}

// Post handles POST /live-sessions/:id/chat.
func (h *Handler) Post(c *gin.Context) {
	id, ok := livesessions.ParseID(c, "id")
	if !ok {
		return
	}
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.engine.PostMessage(c.Request.Context(), id, middleware.UserID(c), req.Message, models.ChatKind(req.MessageType))
	if err != nil {
		livesessions.Fail(c, err)
		return
	}
	response.Created(c, e)
}

// List handles GET /live-sessions/:id/chat?after=<seq>&limit=<n>, oldest first.
func (h *Handler) List(c *gin.Context) {
	id, ok := livesessions.ParseID(c, "id")
	if !ok {
		return
	}
	after, err := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil || after < 0 {
		response.BadRequest(c, "invalid after")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		response.BadRequest(c, "invalid limit")
		return
	}
	list, err := h.engine.Messages(c.Request.Context(), id, after, limit)
	if err != nil {
		livesessions.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"messages": list})
}

// SetVisibility handles PATCH /live-sessions/:id/chat/:seq (owner hides or restores an entry).
func (h *Handler) SetVisibility(c *gin.Context) {
	id, ok := livesessions.ParseID(c, "id")
	if !ok {
		return
	}
	seq, err := strconv.ParseInt(c.Param("seq"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid seq")
		return
	}
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.engine.SetMessageVisibility(c.Request.Context(), id, middleware.UserID(c), seq, *req.Visible)
	if err != nil {
		livesessions.Fail(c, err)
		return
	}
	response.OK(c, e)
}
