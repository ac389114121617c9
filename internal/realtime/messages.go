package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/models"
)

// Outbound envelope types.
const (
	TypeJoined            = "joined"
	TypeLeft              = "left"
	TypeChatMessage       = "chat_message"
	TypeQuestion          = "question"
	TypeQuestionUpvote    = "question_upvote"
	TypeQuestionAnswer    = "question_answer"
	TypeViewerCountUpdate = "viewer_count_update"
	TypeStatusUpdate      = "status_update"
	TypeError             = "error"
	TypePong              = "pong"
)

// Inbound frame types.
const (
	FrameChat     = "chat"
	FrameQuestion = "question"
	FrameUpvote   = "upvote"
	FrameAnswer   = "answer"
	FramePing     = "ping"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of an error envelope. Ref echoes the inbound frame type.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// Frame is a decoded inbound frame: one of ChatFrame, QuestionFrame, UpvoteFrame,
// AnswerFrame or PingFrame.
type Frame interface {
	frameType() string
}

type ChatFrame struct {
	Message     string          `json:"message"`
	MessageType models.ChatKind `json:"message_type"`
}

type QuestionFrame struct {
	Question string `json:"question"`
}

type UpvoteFrame struct {
	QuestionID uuid.UUID `json:"question_id"`
}

type AnswerFrame struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
}

type PingFrame struct{}

func (ChatFrame) frameType() string     { return FrameChat }
func (QuestionFrame) frameType() string { return FrameQuestion }
func (UpvoteFrame) frameType() string   { return FrameUpvote }
func (AnswerFrame) frameType() string   { return FrameAnswer }
func (PingFrame) frameType() string     { return FramePing }

// DecodeFrame parses an inbound frame. It also returns the envelope type, when readable,
// so errors can reference it.
func DecodeFrame(raw []byte) (Frame, string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fmt.Errorf("%w: %v", live.ErrMalformed, err)
	}
	var f Frame
	switch env.Type {
	case FrameChat:
		f = &ChatFrame{}
	case FrameQuestion:
		f = &QuestionFrame{}
	case FrameUpvote:
		f = &UpvoteFrame{}
	case FrameAnswer:
		f = &AnswerFrame{}
	case FramePing:
		return PingFrame{}, env.Type, nil
	default:
		return nil, env.Type, fmt.Errorf("%w: unknown frame type %q", live.ErrMalformed, env.Type)
	}
	if len(env.Data) == 0 {
		return nil, env.Type, fmt.Errorf("%w: %s frame without data", live.ErrMalformed, env.Type)
	}
	if err := json.Unmarshal(env.Data, f); err != nil {
		return nil, env.Type, fmt.Errorf("%w: %v", live.ErrMalformed, err)
	}
	switch v := f.(type) {
	case *ChatFrame:
		return *v, env.Type, nil
	case *QuestionFrame:
		return *v, env.Type, nil
	case *UpvoteFrame:
		if v.QuestionID == uuid.Nil {
			return nil, env.Type, fmt.Errorf("%w: question_id required", live.ErrMalformed)
		}
		return *v, env.Type, nil
	case *AnswerFrame:
		if v.QuestionID == uuid.Nil {
			return nil, env.Type, fmt.Errorf("%w: question_id required", live.ErrMalformed)
		}
		return *v, env.Type, nil
	}
	return nil, env.Type, fmt.Errorf("%w: unknown frame type %q", live.ErrMalformed, env.Type)
}

// outboundType maps an engine event to its envelope type.
func outboundType(k live.EventKind) (string, bool) {
	switch k {
	case live.EventJoined:
		return TypeJoined, true
	case live.EventLeft:
		return TypeLeft, true
	case live.EventChatPosted:
		return TypeChatMessage, true
	case live.EventQuestionAsked:
		return TypeQuestion, true
	case live.EventQuestionUpvoted:
		return TypeQuestionUpvote, true
	case live.EventQuestionAnswered:
		return TypeQuestionAnswer, true
	case live.EventViewerCount:
		return TypeViewerCountUpdate, true
	case live.EventStatus:
		return TypeStatusUpdate, true
	}
	return "", false
}

// excludesOrigin reports whether the connection that caused an event is skipped on fan-out.
// The joiner gets a direct joined reply carrying the viewer count instead.
func excludesOrigin(k live.EventKind) bool {
	return k == live.EventJoined || k == live.EventViewerCount
}

// Encode builds a wire frame.
func Encode(typ string, data any) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Data: body})
}

func errorData(err error, ref string) ErrorData {
	var e *live.Error
	if errors.As(err, &e) {
		msg := err.Error()
		if e.Code == live.CodeRoomUnavailable {
			msg = e.Message
		}
		return ErrorData{Code: string(e.Code), Message: msg, Ref: ref}
	}
	return ErrorData{Code: "internal", Message: "internal error", Ref: ref}
}
