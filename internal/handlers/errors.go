package handlers

import (
	"errors"
	"net/http"

	"github.com/ChrisAbdo/event-manager/internal/service"
	"github.com/ChrisAbdo/event-manager/internal/validation"

	"github.com/gin-gonic/gin"
)

const (
	errInternal         = "internal server error"
	errValidationFailed = "validation failed"
	errInvalidBodyPref  = "invalid body: "
	errInvalidUserID    = "invalid user id"
)

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error   string                   `json:"error" example:"Email already exists"`
	Details []*validation.FieldError `json:"details,omitempty"`
}

// clientErrors are the service errors whose text is safe to return.
// Wrapped variants are answered with the sentinel text only.
var clientErrors = []error{
	service.ErrInvalidCredentials,
	service.ErrInvalidToken,
	service.ErrAccountLocked,
	service.ErrRoleChangeDenied,
	service.ErrSelfDelete,
	service.ErrUserNotFound,
	service.ErrEmailTaken,
	service.ErrNicknameTaken,
	service.ErrRoleTransition,
	service.ErrInvalidTimeRange,
}

func clientMessage(err error) string {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return errInternal
}

// statusFor maps service errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountLocked),
		errors.Is(err, service.ErrRoleChangeDenied),
		errors.Is(err, service.ErrSelfDelete):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrNicknameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrRoleTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidTimeRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error. Internal errors are logged under logKey
// and hidden from the client.
func (h *Handler) fail(c *gin.Context, logKey string, err error, kv ...interface{}) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{Error: errValidationFailed, Details: verrs})
		return
	}

	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logAndAbort(c, logKey, err, kv...)
		return
	}
	if h.log != nil {
		h.log.Infow(logKey, append([]interface{}{"err", err}, kv...)...)
	}
	c.AbortWithStatusJSON(code, errorResponse{Error: clientMessage(err)})
}

// Centralized error logging and 500 response.
func (h *Handler) logAndAbort(c *gin.Context, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: errInternal})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		badRequest(c, errInvalidBodyPref+err.Error())
		return false
	}
	return true
}
