package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestJWTService_Roundtrip(t *testing.T) {
	req := require.New(t)
	svc := NewJWTService("secret")
	user := uuid.New()

	token, err := svc.Sign(user, "ada@example.com", RoleInstructor, time.Hour)
	req.NoError(err)

	claims, err := svc.Validate(token)
	req.NoError(err)
	req.Equal(user, claims.UserID)
	req.Equal(RoleInstructor, claims.Role)

	sub, role, err := svc.Subject(token)
	req.NoError(err)
	req.Equal(user.String(), sub)
	req.Equal(RoleInstructor, role)
}

func TestJWTService_Rejects(t *testing.T) {
	req := require.New(t)
	svc := NewJWTService("secret")
	user := uuid.New()

	expired, err := svc.Sign(user, "", RoleStudent, -time.Minute)
	req.NoError(err)
	_, err = svc.Validate(expired)
	req.ErrorIs(err, ErrInvalidToken)

	foreign, err := NewJWTService("other").Sign(user, "", RoleStudent, time.Hour)
	req.NoError(err)
	_, err = svc.Validate(foreign)
	req.ErrorIs(err, ErrInvalidToken)

	_, _, err = svc.Subject("garbage")
	req.ErrorIs(err, ErrInvalidToken)
}
