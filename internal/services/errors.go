// Package services defines the business logic for accounts, rooms, messages
// and the read-only browse views. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"sort"
	"strings"
)

// Identity errors.
var (
	// ErrUnauthenticated is returned when an anonymous actor calls an
	// operation that requires a signed-in user.
	ErrUnauthenticated = errors.New("login required")

	// ErrAlreadyAuthenticated is returned when a signed-in actor tries to
	// log in or register.
	ErrAlreadyAuthenticated = errors.New("already signed in")

	// ErrInvalidCredentials covers both unknown identifiers and wrong
	// passwords so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateUser is returned when the username or email is taken.
	ErrDuplicateUser = errors.New("a user with that username or email already exists")

	// ErrInvalidRegistration wraps field-level registration problems.
	ErrInvalidRegistration = errors.New("an error occurred during registration")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidProfile wraps field-level profile update problems.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Room and message errors.
var (
	// ErrRoomNotFound indicates that the requested room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidRoom wraps field-level room form problems.
	ErrInvalidRoom = errors.New("invalid room")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrEmptyBody is returned when a posted message has no text.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrTooLong is returned when a message exceeds the configured limit.
	ErrTooLong = errors.New("message too long")

	// ErrForbidden is returned when the actor is neither the room host nor
	// the message author required for the mutation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries per-field messages. It unwraps to Kind so callers
// can match the operation-level sentinel with errors.Is.
type ValidationError struct {
	Kind   error
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Kind.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// fieldErrors accumulates validation problems for one operation.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err(kind error) error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Kind: kind, Fields: f}
}
