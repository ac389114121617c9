package livesessions

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/pkg/response"
)

var statusByCode = map[live.Code]int{
	live.CodeNotFound:         http.StatusNotFound,
	live.CodeInvalidState:     http.StatusConflict,
	live.CodeForbidden:        http.StatusForbidden,
	live.CodeAlreadyJoined:    http.StatusConflict,
	live.CodeNotParticipating: http.StatusConflict,
	live.CodeCapacityExceeded: http.StatusConflict,
	live.CodePermissionDenied: http.StatusForbidden,
	live.CodeInvalidMessage:   http.StatusBadRequest,
	live.CodeMalformed:        http.StatusBadRequest,
}

// Fail writes an engine error with its HTTP status and code. Unclassified errors become 500.
func Fail(c *gin.Context, err error) {
	code := live.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		response.Fail(c, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	response.Fail(c, status, string(code), err.Error())
}
