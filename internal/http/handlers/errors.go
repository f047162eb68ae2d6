// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them. Generic
// codes mirror HTTP status semantics, the domain ones name forum outcomes
// that status alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_credentials",
//	  "message": "Email/Username or password is incorrect."
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeValidation         = "validation_failed"
	ErrCodeTooLarge           = "payload_too_large"
	ErrCodeUnsupportedMedia   = "unsupported_media_type"
)

// User-facing texts.
const (
	msgInvalidCredentials = "Email/Username or password is incorrect."
	msgRegistrationFailed = "An error occurred during registration."
	msgNotAllowed         = "You are not allowed here!!"
)
