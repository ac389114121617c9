package livesessions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aura-learn/backend/internal/auth"
	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/mediakey"
	"github.com/aura-learn/backend/internal/middleware"
)

type body struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type transcriptKeys map[uuid.UUID]string

func (k transcriptKeys) TranscriptKey(_ context.Context, id uuid.UUID) (string, error) {
	return k[id], nil
}

type presigner struct{}

func (presigner) PresignedDownloadURL(_ context.Context, key string) (string, error) {
	return "https://s3.example.com/" + key + "?sig=x", nil
}

func (presigner) PresignExpire() time.Duration { return 15 * time.Minute }

type fixture struct {
	router *gin.Engine
	engine *live.Engine
	jwt    *auth.JWTService
	keys   transcriptKeys
}

func newFixture(t *testing.T, withS3 bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := live.NewEngine(live.Options{})
	t.Cleanup(engine.Close)
	f := &fixture{engine: engine, jwt: auth.NewJWTService("test-secret"), keys: transcriptKeys{}}

	h := NewHandler(engine, mediakey.NewIssuer("rtmp://media/live"), nil, nil, nil)
	if withS3 {
		h = NewHandler(engine, mediakey.NewIssuer("rtmp://media/live"), f.keys, presigner{}, nil)
	}

	r := gin.New()
	r.POST("/media/on_publish", h.OnPublish)
	api := r.Group("", middleware.JWT(f.jwt))
	api.POST("/live-sessions", middleware.RequireRole(auth.RoleInstructor, auth.RoleAdmin), h.Create)
	api.GET("/live-sessions", h.List)
	api.GET("/live-sessions/:id", h.Get)
	api.PATCH("/live-sessions/:id", h.Update)
	api.POST("/live-sessions/:id/start", h.Start)
	api.POST("/live-sessions/:id/stop", h.Stop)
	api.POST("/live-sessions/:id/cancel", h.Cancel)
	api.POST("/live-sessions/:id/join", h.Join)
	api.POST("/live-sessions/:id/leave", h.Leave)
	api.GET("/live-sessions/:id/stats", h.Stats)
	api.GET("/live-sessions/:id/participants", h.Participants)
	api.PATCH("/live-sessions/:id/participants/:userId", h.SetPermissions)
	api.POST("/live-sessions/:id/stream-key", h.RotateKey)
	api.GET("/live-sessions/:id/transcript", h.Transcript)
	f.router = r
	return f
}

func (f *fixture) token(t *testing.T, user uuid.UUID, role string) string {
	t.Helper()
	tok, err := f.jwt.Sign(user, "", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token string, payload any) (int, body) {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var b body
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	}
	return w.Code, b
}

func (f *fixture) publish(name, key string) int {
	form := url.Values{"name": {name}, "key": {key}}
	req := httptest.NewRequest(http.MethodPost, "/media/on_publish", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w.Code
}

type created struct {
	ID         uuid.UUID `json:"id"`
	MaxViewers int       `json:"max_viewers"`
	Status     string    `json:"status"`
	StreamKey  string    `json:"stream_key"`
	IngestURL  string    `json:"ingest_url"`
}

func (f *fixture) create(t *testing.T, owner string, maxViewers int) created {
	t.Helper()
	status, b := f.do(t, http.MethodPost, "/live-sessions", owner, gin.H{"title": "Dynamic programming", "max_viewers": maxViewers})
	require.Equal(t, http.StatusCreated, status, b.Error)
	var c created
	require.NoError(t, json.Unmarshal(b.Data, &c))
	return c
}

func TestCreate_ReturnsStreamKeyOnce(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, false)
	owner := f.token(t, uuid.New(), auth.RoleInstructor)

	// Given a session created by an instructor
	s := f.create(t, owner, 0)

	// Then the key and ingest URL are returned and the default capacity applies
	req.NotEmpty(s.StreamKey)
	req.Equal("rtmp://media/live/"+s.ID.String(), s.IngestURL)
	req.Equal(100, s.MaxViewers)
	req.Equal("scheduled", s.Status)

	// And reading the session never exposes the key
	status, b := f.do(t, http.MethodGet, "/live-sessions/"+s.ID.String(), owner, nil)
	req.Equal(http.StatusOK, status)
	req.NotContains(string(b.Data), s.StreamKey)
	req.NotContains(string(b.Data), "stream_key")
}

func TestCreate_RequiresInstructor(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, false)

	status, _ := f.do(t, http.MethodPost, "/live-sessions", f.token(t, uuid.New(), auth.RoleStudent), gin.H{"title": "x"})
	req.Equal(http.StatusForbidden, status)

	status, b := f.do(t, http.MethodPost, "/live-sessions", f.token(t, uuid.New(), auth.RoleInstructor), gin.H{"title": "x", "max_viewers": 5000})
	req.Equal(http.StatusBadRequest, status)
	req.Equal("invalid_message", b.Code)
}

func TestOnPublish_VerifiesKey(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, false)
	owner := f.token(t, uuid.New(), auth.RoleInstructor)
	s := f.create(t, owner, 0)

	req.Equal(http.StatusOK, f.publish(s.ID.String(), s.StreamKey))
	req.Equal(http.StatusForbidden, f.publish(s.ID.String(), "guess"))
	req.Equal(http.StatusForbidden, f.publish(uuid.NewString(), s.StreamKey))
	req.Equal(http.StatusForbidden, f.publish("not-a-uuid", s.StreamKey))

	// When the key is rotated the old one stops working
	status, b := f.do(t, http.MethodPost, "/live-sessions/"+s.ID.String()+"/stream-key", owner, nil)
	req.Equal(http.StatusOK, status)
	var rotated mediakey.Key
	req.NoError(json.Unmarshal(b.Data, &rotated))
	req.Equal(http.StatusForbidden, f.publish(s.ID.String(), s.StreamKey))
	req.Equal(http.StatusOK, f.publish(s.ID.String(), rotated.Plain))

	// And a finished session refuses publishing
	f.do(t, http.MethodPost, "/live-sessions/"+s.ID.String()+"/cancel", owner, nil)
	req.Equal(http.StatusForbidden, f.publish(s.ID.String(), rotated.Plain))
}

func TestJoin_ErrorCodes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, false)
	owner := f.token(t, uuid.New(), auth.RoleInstructor)
	alice := f.token(t, uuid.New(), auth.RoleStudent)
	bob := f.token(t, uuid.New(), auth.RoleStudent)

	// Given a live session with room for one viewer
	s := f.create(t, owner, 1)
	path := "/live-sessions/" + s.ID.String()

	status, b := f.do(t, http.MethodPost, path+"/start", alice, nil)
	req.Equal(http.StatusForbidden, status)
	req.Equal("forbidden", b.Code)
	status, _ = f.do(t, http.MethodPost, path+"/start", owner, nil)
	req.Equal(http.StatusOK, status)

	// When two viewers join
	status, _ = f.do(t, http.MethodPost, path+"/join", alice, nil)
	req.Equal(http.StatusOK, status)
	status, b = f.do(t, http.MethodPost, path+"/join", bob, nil)

	// Then the second is refused
	req.Equal(http.StatusConflict, status)
	req.Equal("capacity_exceeded", b.Code)
	req.False(b.Success)

	status, b = f.do(t, http.MethodPost, path+"/join", alice, nil)
	req.Equal(http.StatusConflict, status)
	req.Equal("already_joined", b.Code)

	status, b = f.do(t, http.MethodPost, path+"/leave", bob, nil)
	req.Equal(http.StatusConflict, status)
	req.Equal("not_participating", b.Code)

	// And once the first leaves the second fits
	status, _ = f.do(t, http.MethodPost, path+"/leave", alice, nil)
	req.Equal(http.StatusOK, status)
	status, _ = f.do(t, http.MethodPost, path+"/join", bob, nil)
	req.Equal(http.StatusOK, status)

	// And nobody joins a finished session
	f.do(t, http.MethodPost, path+"/stop", owner, nil)
	status, b = f.do(t, http.MethodPost, path+"/join", alice, nil)
	req.Equal(http.StatusConflict, status)
	req.Equal("invalid_state", b.Code)
}

func TestGet_BadAndUnknownIDs(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, false)
	tok := f.token(t, uuid.New(), auth.RoleStudent)

	status, _ := f.do(t, http.MethodGet, "/live-sessions/nope", tok, nil)
	req.Equal(http.StatusBadRequest, status)

	status, b := f.do(t, http.MethodGet, "/live-sessions/"+uuid.NewString(), tok, nil)
	req.Equal(http.StatusNotFound, status)
	req.Equal("not_found", b.Code)

	status, _ = f.do(t, http.MethodGet, "/live-sessions", "", nil)
	req.Equal(http.StatusUnauthorized, status)
}

func TestUpdate_And_List(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, false)
	owner := f.token(t, uuid.New(), auth.RoleInstructor)
	s := f.create(t, owner, 10)
	path := "/live-sessions/" + s.ID.String()

	status, b := f.do(t, http.MethodPatch, path, owner, gin.H{"title": "Greedy algorithms", "max_viewers": 20})
	req.Equal(http.StatusOK, status)
	req.Contains(string(b.Data), `"title":"Greedy algorithms"`)
	req.Contains(string(b.Data), `"max_viewers":20`)

	status, b = f.do(t, http.MethodPatch, path, owner, gin.H{"title": "   "})
	req.Equal(http.StatusBadRequest, status)
	req.Equal("invalid_message", b.Code)

	status, b = f.do(t, http.MethodGet, "/live-sessions", owner, nil)
	req.Equal(http.StatusOK, status)
	req.Contains(string(b.Data), s.ID.String())

	f.do(t, http.MethodPost, path+"/cancel", owner, nil)
	_, b = f.do(t, http.MethodGet, "/live-sessions", owner, nil)
	req.NotContains(string(b.Data), s.ID.String())

	status, b = f.do(t, http.MethodPatch, path, owner, gin.H{"title": "Too late"})
	req.Equal(http.StatusConflict, status)
	req.Equal("invalid_state", b.Code)
}

func TestPermissions_And_Participants(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, false)
	ownerID, viewerID := uuid.New(), uuid.New()
	owner := f.token(t, ownerID, auth.RoleInstructor)
	viewer := f.token(t, viewerID, auth.RoleStudent)
	s := f.create(t, owner, 0)
	path := "/live-sessions/" + s.ID.String()
	f.do(t, http.MethodPost, path+"/start", owner, nil)
	f.do(t, http.MethodPost, path+"/join", viewer, nil)

	status, _ := f.do(t, http.MethodGet, path+"/participants", viewer, nil)
	req.Equal(http.StatusForbidden, status)

	status, b := f.do(t, http.MethodPatch, path+"/participants/"+viewerID.String(), owner, gin.H{"can_chat": false})
	req.Equal(http.StatusOK, status)
	req.Contains(string(b.Data), `"can_chat":false`)
	req.Contains(string(b.Data), `"can_ask_questions":true`)

	status, b = f.do(t, http.MethodGet, path+"/participants", owner, nil)
	req.Equal(http.StatusOK, status)
	req.Contains(string(b.Data), viewerID.String())
}

func TestStopAndTranscript(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, true)
	ownerID := uuid.New()
	owner := f.token(t, ownerID, auth.RoleInstructor)
	viewer := f.token(t, uuid.New(), auth.RoleStudent)
	admin := f.token(t, uuid.New(), auth.RoleAdmin)
	s := f.create(t, owner, 0)
	path := "/live-sessions/" + s.ID.String()
	f.do(t, http.MethodPost, path+"/start", owner, nil)
	f.do(t, http.MethodPost, path+"/join", viewer, nil)

	// When the owner stops the session
	status, b := f.do(t, http.MethodPost, path+"/stop", owner, nil)
	req.Equal(http.StatusOK, status)
	req.Contains(string(b.Data), `"status":"ended"`)

	// Then stats report no current viewers
	status, b = f.do(t, http.MethodGet, path+"/stats", viewer, nil)
	req.Equal(http.StatusOK, status)
	req.Contains(string(b.Data), `"current_viewers":0`)
	req.Contains(string(b.Data), `"total_unique_viewers":1`)

	// And the transcript is unavailable until archived
	status, _ = f.do(t, http.MethodGet, path+"/transcript", owner, nil)
	req.Equal(http.StatusNotFound, status)

	f.keys[s.ID] = "transcripts/" + s.ID.String() + ".json"
	status, b = f.do(t, http.MethodGet, path+"/transcript", owner, nil)
	req.Equal(http.StatusOK, status)
	req.Contains(string(b.Data), "https://s3.example.com/transcripts/"+s.ID.String()+".json")
	req.Contains(string(b.Data), `"expires_in":900`)

	status, _ = f.do(t, http.MethodGet, path+"/transcript", viewer, nil)
	req.Equal(http.StatusForbidden, status)
	status, _ = f.do(t, http.MethodGet, path+"/transcript", admin, nil)
	req.Equal(http.StatusOK, status)
}

func TestTranscript_NotConfigured(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, false)
	owner := f.token(t, uuid.New(), auth.RoleInstructor)
	s := f.create(t, owner, 0)

	status, _ := f.do(t, http.MethodGet, "/live-sessions/"+s.ID.String()+"/transcript", owner, nil)
	req.Equal(http.StatusServiceUnavailable, status)
}

func TestFail_MapsCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{live.ErrNotFound, http.StatusNotFound, "not_found"},
		{live.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{live.ErrForbidden, http.StatusForbidden, "forbidden"},
		{live.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
		{live.ErrInvalidMessage, http.StatusBadRequest, "invalid_message"},
		{live.ErrRoomUnavailable, http.StatusInternalServerError, "internal"},
		{errors.New("pool closed"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Fail(c, tt.err)

			var b body
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
			require.Equal(t, tt.status, w.Code)
			require.Equal(t, tt.code, b.Code)
			require.NotContains(t, b.Error, "pool closed")
		})
	}
}
