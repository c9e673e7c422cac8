package models

import (
	"errors"
	"fmt"
)

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}

// HealthCheckResponse returns the health check response duh
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// Error kinds. Typed errors below match these with errors.Is.
var (
	ErrInvalidFilterInput = errors.New("invalid filter input")
	ErrStoreAccess        = errors.New("store access failed")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
)

// FilterInputError reports a malformed filter parameter
type FilterInputError struct {
	Field string
	Value string
}

func (e *FilterInputError) Error() string {
	return fmt.Sprintf("invalid filter input: %s=%q", e.Field, e.Value)
}

// Is matches ErrInvalidFilterInput
func (e *FilterInputError) Is(target error) bool { return target == ErrInvalidFilterInput }

// ValidationError reports a missing or invalid field on a write
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is matches ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransitionError reports an illegal lifecycle move
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// Is matches ErrInvalidTransition
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// StoreAccessError wraps a persistence failure with the operation that hit it
type StoreAccessError struct {
	Op  string
	Err error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("store access failed during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying store error
func (e *StoreAccessError) Unwrap() error { return e.Err }

// Is matches ErrStoreAccess
func (e *StoreAccessError) Is(target error) bool { return target == ErrStoreAccess }
