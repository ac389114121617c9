package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/models"
)

// Close codes sent by the server.
const (
	CloseNoCredential       = 4001
	CloseInvalidCredential  = 4003
	CloseSessionUnavailable = 4004
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Config tunes connection timing and buffering.
type Config struct {
	SendBuffer    int
	IdleTimeout   time.Duration
	PingInterval  time.Duration
	WriteTimeout  time.Duration
	MaxFrameBytes int64
}

// DefaultConfig returns the defaults used when a field is zero.
func DefaultConfig() Config {
	return Config{
		SendBuffer:    256,
		IdleTimeout:   60 * time.Second,
		PingInterval:  25 * time.Second,
		WriteTimeout:  10 * time.Second,
		MaxFrameBytes: 65536,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PingInterval >= c.IdleTimeout {
		c.PingInterval = c.IdleTimeout * 9 / 10
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = d.MaxFrameBytes
	}
	return c
}

// Engine is the part of the live engine a connection drives.
type Engine interface {
	Attach(ctx context.Context, sessionID, userID uuid.UUID) (live.Attachment, error)
	Detach(ctx context.Context, sessionID, userID uuid.UUID) (bool, error)
	PostMessage(ctx context.Context, sessionID, userID uuid.UUID, text string, kind models.ChatKind) (models.ChatEntry, error)
	Ask(ctx context.Context, sessionID, userID uuid.UUID, text string) (models.Question, error)
	Upvote(ctx context.Context, sessionID, questionID uuid.UUID) (models.Question, error)
	Answer(ctx context.Context, sessionID, actor, questionID uuid.UUID, text string) (models.Question, error)
}

// TokenValidator resolves a bearer credential to a user id and role.
type TokenValidator func(token string) (userID, role string, err error)

// Client represents a single WebSocket connection in a live session.
type Client struct {
	ID        string
	SessionID uuid.UUID
	UserID    uuid.UUID
	Role      string
	hub       *Hub
	engine    Engine
	conn      *websocket.Conn
	send      chan []byte
	dropped   atomic.Bool
	cfg       Config
	logger    *zap.Logger
}

// ServeWs upgrades the request, authenticates it, attaches the user to the session
// named by the :id path parameter and runs the client loop.
func ServeWs(hub *Hub, engine Engine, validate TokenValidator, cfg Config, logger *zap.Logger) gin.HandlerFunc {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		token := bearerToken(c.Request)
		if token == "" {
			closeWith(conn, CloseNoCredential, "missing token", cfg.WriteTimeout)
			return
		}
		userIDStr, role, err := validate(token)
		if err != nil {
			closeWith(conn, CloseInvalidCredential, "invalid token", cfg.WriteTimeout)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			closeWith(conn, CloseInvalidCredential, "invalid token subject", cfg.WriteTimeout)
			return
		}
		sessionID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			closeWith(conn, CloseSessionUnavailable, "invalid stream id", cfg.WriteTimeout)
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserID:    userID,
			Role:      role,
			hub:       hub,
			engine:    engine,
			conn:      conn,
			send:      make(chan []byte, cfg.SendBuffer),
			cfg:       cfg,
			logger:    logger,
		}
		// registered before attaching so no event after the join is missed
		hub.Register(client)
		a, err := engine.Attach(live.WithOrigin(c.Request.Context(), client.ID), sessionID, userID)
		if err != nil {
			hub.Unregister(client)
			closeWith(conn, CloseSessionUnavailable, err.Error(), cfg.WriteTimeout)
			logger.Debug("attach rejected", zap.String("session_id", sessionID.String()), zap.Error(err))
			return
		}
		client.reply(TypeJoined, live.PresenceEvent{
			SessionID:   sessionID,
			UserID:      userID,
			IsModerator: a.Participant.IsModerator,
			ViewerCount: a.ViewerCount,
		})

		go client.writePump()
		client.readPump()
	}
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func closeWith(conn *websocket.Conn, code int, reason string, timeout time.Duration) {
	if len(reason) > 120 {
		reason = reason[:120]
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(timeout))
	_ = conn.Close()
}

func (c *Client) reply(typ string, data any) {
	frame, err := Encode(typ, data)
	if err != nil {
		c.logger.Error("encode reply", zap.String("type", typ), zap.Error(err))
		return
	}
	c.hub.Send(c, frame)
}

func (c *Client) replyError(err error, ref string) {
	c.reply(TypeError, errorData(err, ref))
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if _, err := c.engine.Detach(context.Background(), c.SessionID, c.UserID); err != nil {
			c.logger.Warn("detach failed", zap.String("session_id", c.SessionID.String()), zap.Error(err))
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("read failed", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))

		frame, ref, err := DecodeFrame(raw)
		if err != nil {
			c.replyError(err, ref)
			continue
		}
		if err := c.dispatch(frame); err != nil {
			c.replyError(err, ref)
		}
	}
}

// dispatch applies one inbound frame. Successful operations are answered by the
// engine's broadcast, which reaches this connection too.
func (c *Client) dispatch(f Frame) error {
	ctx := live.WithOrigin(context.Background(), c.ID)
	var err error
	switch f := f.(type) {
	case ChatFrame:
		_, err = c.engine.PostMessage(ctx, c.SessionID, c.UserID, f.Message, f.MessageType)
	case QuestionFrame:
		_, err = c.engine.Ask(ctx, c.SessionID, c.UserID, f.Question)
	case UpvoteFrame:
		_, err = c.engine.Upvote(ctx, c.SessionID, f.QuestionID)
	case AnswerFrame:
		_, err = c.engine.Answer(ctx, c.SessionID, c.UserID, f.QuestionID, f.Answer)
	case PingFrame:
		c.reply(TypePong, struct {
			At time.Time `json:"at"`
		}{At: time.Now().UTC()})
	default:
		err = errors.New("unhandled frame")
	}
	return err
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				if c.dropped.Load() {
					msg = websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "slow consumer")
				}
				_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
