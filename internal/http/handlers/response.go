// Package handlers provides the forum's HTTP handlers.
//
// This file defines the response helpers shared by every endpoint:
//
//   - fail() writes the JSON error envelope and logs 5xx responses.
//   - ok() writes a JSON view.
//   - seeOther() answers a successful form POST with 302 Found.
//   - denied() writes the plain-text authorization denial.
//   - serviceError() maps service and media errors to one of the above.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "room not found"
//	}
package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-forum-backend/internal/http/middleware"
	"github.com/tbourn/go-forum-backend/internal/media"
	"github.com/tbourn/go-forum-backend/internal/services"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"room not found"`
	// Per-field problems for validation failures
	Fields map[string]string `json:"fields,omitempty"`
}

func fail(c *gin.Context, status int, code, msg string) {
	failFields(c, status, code, msg, nil)
}

func failFields(c *gin.Context, status int, code, msg string, fields map[string]string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.GetRequestID(c),
		Code:      code,
		Message:   msg,
		Fields:    fields,
	})
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// seeOther redirects after a successful POST.
func seeOther(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

// denied answers an authorization failure with plain text and no redirect.
func denied(c *gin.Context) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.AbortWithStatus(http.StatusForbidden)
	_, _ = c.Writer.WriteString(msgNotAllowed)
}

// serviceError translates err into a response. It reports the outcome label
// used for the forum_actions_total metric.
func serviceError(c *gin.Context, err error) string {
	var ve *services.ValidationError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		c.Redirect(http.StatusFound, middleware.LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
		return middleware.OutcomeDenied
	case errors.Is(err, services.ErrAlreadyAuthenticated):
		c.Redirect(http.StatusFound, "/")
		c.Abort()
		return middleware.OutcomeDenied
	case errors.Is(err, services.ErrForbidden):
		denied(c)
		return middleware.OutcomeDenied
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, msgInvalidCredentials)
		return middleware.OutcomeInvalid
	case errors.As(err, &ve):
		msg := ve.Kind.Error()
		if errors.Is(ve, services.ErrInvalidRegistration) {
			msg = msgRegistrationFailed
		}
		failFields(c, http.StatusBadRequest, ErrCodeValidation, msg, ve.Fields)
		return middleware.OutcomeInvalid
	case errors.Is(err, services.ErrDuplicateUser):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		return middleware.OutcomeInvalid
	case errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return middleware.OutcomeNotFound
	case errors.Is(err, services.ErrEmptyBody), errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return middleware.OutcomeInvalid
	case errors.Is(err, media.ErrTooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, err.Error())
		return middleware.OutcomeInvalid
	case errors.Is(err, media.ErrTypeNotAllowed), errors.Is(err, media.ErrEmpty):
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, err.Error())
		return middleware.OutcomeInvalid
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("service failure")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return middleware.OutcomeError
	}
}
