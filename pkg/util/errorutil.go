package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/signal-service/internal/citycontrol"
	"github.com/spec-kit/signal-service/internal/workflow"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var invalidTransition *workflow.InvalidTransitionError
	if errors.As(err, &invalidTransition) {
		return &DomainError{
			Code:       "INVALID_TRANSITION",
			Message:    invalidTransition.Error(),
			HTTPStatus: http.StatusConflict,
			Details: map[string]any{
				"from": string(invalidTransition.From),
				"to":   string(invalidTransition.To),
			},
		}
	}

	var precondition *workflow.PreconditionError
	if errors.As(err, &precondition) {
		return &DomainError{
			Code:       "PRECONDITION_FAILED",
			Message:    precondition.Error(),
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"field": precondition.Field},
		}
	}

	switch {
	case errors.Is(err, workflow.ErrPermissionDenied):
		return NewForbidden("insufficient capabilities").(*DomainError)
	case errors.Is(err, workflow.ErrConcurrentModification):
		return NewConflict("signal status changed concurrently", nil).(*DomainError)
	case errors.Is(err, citycontrol.ErrRoundTripLimitExceeded):
		return NewConflict(err.Error(), nil).(*DomainError)
	case errors.Is(err, pgx.ErrNoRows):
		return NewNotFound("resource", nil).(*DomainError)
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
