package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aura-learn/backend/internal/auth"
	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/middleware"
	"github.com/aura-learn/backend/internal/models"
)

type body struct {
	Data json.RawMessage `json:"data"`
	Code string          `json:"code"`
}

func setup(t *testing.T) (*gin.Engine, *auth.JWTService, *live.Engine, models.StreamSession) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := live.NewEngine(live.Options{})
	t.Cleanup(engine.Close)

	ctx := context.Background()
	owner := uuid.New()
	s, err := engine.CreateSession(ctx, owner, live.CreateInput{Title: "Operating systems"})
	require.NoError(t, err)
	_, err = engine.Start(ctx, s.ID, owner)
	require.NoError(t, err)

	svc := auth.NewJWTService("test-secret")
	h := NewHandler(engine)
	r := gin.New()
	api := r.Group("", middleware.JWT(svc))
	api.GET("/live-sessions/:id/questions", h.List)
	api.POST("/live-sessions/:id/questions", h.Ask)
	api.POST("/live-sessions/:id/questions/:questionId/upvote", h.Upvote)
	api.POST("/live-sessions/:id/questions/:questionId/answer", h.Answer)
	api.PATCH("/live-sessions/:id/questions/:questionId", h.SetVisibility)
	return r, svc, engine, s
}

func call(t *testing.T, r http.Handler, svc *auth.JWTService, method, path string, user uuid.UUID, payload any) (int, body) {
	t.Helper()
	tok, err := svc.Sign(user, "", auth.RoleStudent, time.Hour)
	require.NoError(t, err)
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var b body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return w.Code, b
}

func TestQuestions_AskUpvoteAnswer(t *testing.T) {
	req := require.New(t)
	r, svc, engine, s := setup(t)
	base := "/live-sessions/" + s.ID.String() + "/questions"
	viewer := uuid.New()
	_, err := engine.Join(context.Background(), s.ID, viewer)
	req.NoError(err)

	// Given two questions
	ids := make([]uuid.UUID, 0, 2)
	for _, text := range []string{"What is a page fault?", "Why use a TLB?"} {
		status, b := call(t, r, svc, http.MethodPost, base, viewer, gin.H{"question": text})
		req.Equal(http.StatusCreated, status)
		var q models.Question
		req.NoError(json.Unmarshal(b.Data, &q))
		ids = append(ids, q.ID)
	}

	// When the second is upvoted twice
	for i := 0; i < 2; i++ {
		status, b := call(t, r, svc, http.MethodPost, base+"/"+ids[1].String()+"/upvote", viewer, nil)
		req.Equal(http.StatusOK, status)
		req.Contains(string(b.Data), ids[1].String())
	}

	// Then it leads the board
	status, b := call(t, r, svc, http.MethodGet, base, viewer, nil)
	req.Equal(http.StatusOK, status)
	var board struct {
		Questions []models.Question `json:"questions"`
	}
	req.NoError(json.Unmarshal(b.Data, &board))
	req.Len(board.Questions, 2)
	req.Equal(ids[1], board.Questions[0].ID)
	req.Equal(2, board.Questions[0].Upvotes)

	// And only the owner answers
	answer := gin.H{"answer": "A cache of page table entries."}
	status, b = call(t, r, svc, http.MethodPost, base+"/"+ids[1].String()+"/answer", viewer, answer)
	req.Equal(http.StatusForbidden, status)
	req.Equal("forbidden", b.Code)

	status, b = call(t, r, svc, http.MethodPost, base+"/"+ids[1].String()+"/answer", s.InstructorID, answer)
	req.Equal(http.StatusOK, status)
	req.Contains(string(b.Data), `"is_answered":true`)

	status, b = call(t, r, svc, http.MethodPost, base+"/"+uuid.NewString()+"/upvote", viewer, nil)
	req.Equal(http.StatusNotFound, status)
	req.Equal("not_found", b.Code)
}

func TestQuestions_HideAndPermissions(t *testing.T) {
	req := require.New(t)
	r, svc, engine, s := setup(t)
	ctx := context.Background()
	base := "/live-sessions/" + s.ID.String() + "/questions"
	viewer := uuid.New()
	_, err := engine.Join(ctx, s.ID, viewer)
	req.NoError(err)

	status, b := call(t, r, svc, http.MethodPost, base, viewer, gin.H{"question": "  "})
	req.Equal(http.StatusBadRequest, status)
	req.Equal("invalid_message", b.Code)

	q, err := engine.Ask(ctx, s.ID, viewer, "Is this on the exam?")
	req.NoError(err)

	// When the owner hides the question it leaves the board
	status, _ = call(t, r, svc, http.MethodPatch, base+"/"+q.ID.String(), s.InstructorID, gin.H{"is_visible": false})
	req.Equal(http.StatusOK, status)
	_, b = call(t, r, svc, http.MethodGet, base, viewer, nil)
	req.NotContains(string(b.Data), q.ID.String())

	// When asking is disabled for the viewer
	off := false
	_, err = engine.SetPermissions(ctx, s.ID, s.InstructorID, viewer, live.PermissionsInput{CanAskQuestions: &off})
	req.NoError(err)
	status, b = call(t, r, svc, http.MethodPost, base, viewer, gin.H{"question": "Another one?"})
	req.Equal(http.StatusForbidden, status)
	req.Equal("permission_denied", b.Code)
}
