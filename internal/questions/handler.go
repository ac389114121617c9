package questions

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/livesessions"
	"github.com/aura-learn/backend/internal/middleware"
	"github.com/aura-learn/backend/pkg/response"
)

// AskRequest is the body for POST /live-sessions/:id/questions.
type AskRequest struct {
	Question string `json:"question"`
}

// AnswerRequest is the body for POST /live-sessions/:id/questions/:questionId/answer.
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// VisibilityRequest is the body for PATCH /live-sessions/:id/questions/:questionId.
type VisibilityRequest struct {
	Visible *bool `json:"is_visible" binding:"required"`
}

// Handler handles question HTTP endpoints. Every change is broadcast to the room by the engine.
type Handler struct {
	engine *live.Engine
}

// NewHandler creates a questions handler.
func NewHandler(engine *live.Engine) *Handler {
	return &Handler{engine: engine}
}

// List handles GET /live-sessions/:id/questions?limit=<n> (most upvoted first).
func (h *Handler) List(c *gin.Context) {
	id, ok := livesessions.ParseID(c, "id")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		response.BadRequest(c, "invalid limit")
		return
	}
	list, err := h.engine.Questions(c.Request.Context(), id, limit)
	if err != nil {
		livesessions.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"questions": list})
}

// Ask handles POST /live-sessions/:id/questions (participant asks a question).
func (h *Handler) Ask(c *gin.Context) {
	id, ok := livesessions.ParseID(c, "id")
	if !ok {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.engine.Ask(c.Request.Context(), id, middleware.UserID(c), req.Question)
	if err != nil {
		livesessions.Fail(c, err)
		return
	}
	response.Created(c, q)
}

// Upvote handles POST /live-sessions/:id/questions/:questionId/upvote.
func (h *Handler) Upvote(c *gin.Context) {
	id, ok := livesessions.ParseID(c, "id")
	if !ok {
		return
	}
	questionID, ok := livesessions.ParseID(c, "questionId")
	if !ok {
		return
	}
	q, err := h.engine.Upvote(c.Request.Context(), id, questionID)
	if err != nil {
		livesessions.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"id": q.ID, "upvotes": q.Upvotes})
}

// Answer handles POST /live-sessions/:id/questions/:questionId/answer (session owner).
func (h *Handler) Answer(c *gin.Context) {
	id, ok := livesessions.ParseID(c, "id")
	if !ok {
		return
	}
	questionID, ok := livesessions.ParseID(c, "questionId")
	if !ok {
		return
	}
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.engine.Answer(c.Request.Context(), id, middleware.UserID(c), questionID, req.Answer)
	if err != nil {
		livesessions.Fail(c, err)
		return
	}
	response.OK(c, q)
}

// SetVisibility handles PATCH /live-sessions/:id/questions/:questionId (owner hides or restores a question).
func (h *Handler) SetVisibility(c *gin.Context) {
	id, ok := livesessions.ParseID(c, "id")
	if !ok {
		return
	}
	questionID, ok := livesessions.ParseID(c, "questionId")
	if !ok {
		return
	}
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.engine.SetQuestionVisibility(c.Request.Context(), id, middleware.UserID(c), questionID, *req.Visible)
	if err != nil {
		livesessions.Fail(c, err)
		return
	}
	response.OK(c, q)
}
