package live

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aura-learn/backend/internal/models"
)

const (
	MaxTitleLength   = 200
	MaxTextLength    = 1000
	MaxCapacity      = 1000
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

var validate = validator.New()

// CreateInput describes a new session.
type CreateInput struct {
	Title       string     `validate:"required,max=200"`
	Description string     `validate:"max=5000"`
	CourseID    uuid.UUID  `validate:"-"`
	Capacity    int        `validate:"omitempty,min=1,max=1000"`
	IsPublic    bool       `validate:"-"`
	IsRecording bool       `validate:"-"`
	ScheduledAt *time.Time `validate:"-"`
}

// UpdateInput changes session metadata; nil fields are left untouched.
type UpdateInput struct {
	Title       *string    `validate:"omitempty,min=1,max=200"`
	Description *string    `validate:"omitempty,max=5000"`
	Capacity    *int       `validate:"omitempty,min=1,max=1000"`
	IsPublic    *bool      `validate:"-"`
	IsRecording *bool      `validate:"-"`
	ScheduledAt *time.Time `validate:"-"`
}

// PermissionsInput toggles a participant's chat and question rights; nil fields are left untouched.
type PermissionsInput struct {
	CanChat         *bool
	CanAskQuestions *bool
}

type messageInput struct {
	Text string          `validate:"required,max=1000"`
	Kind models.ChatKind `validate:"oneof=text system announcement"`
}

type questionInput struct {
	Text string `validate:"required,max=1000"`
}

type answerInput struct {
	Text string `validate:"max=1000"`
}

// check validates v and blank text fields, returning ErrInvalidMessage with the first violation.
func check(v any, texts ...string) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errorf(CodeInvalidMessage, "%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return errorf(CodeInvalidMessage, "text must not be blank")
		}
	}
	return nil
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
