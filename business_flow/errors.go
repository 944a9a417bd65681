// Package businessflow contains the core business logic and use cases for fleet coordination workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Screen-related errors
	ErrScreenNotFound          = errors.New("screen not found")
	ErrScreenAccessDenied      = errors.New("screen access denied")
	ErrScreenCodeAlreadyExists = errors.New("screen code is already registered to another owner")
	ErrScreenCodeRequired      = errors.New("screen code is required")
	ErrFleetAtCapacity         = errors.New("fleet connection capacity exceeded")

	// Campaign-related errors
	ErrCampaignNotFound       = errors.New("campaign not found")
	ErrCampaignAccessDenied   = errors.New("campaign access denied")
	ErrCampaignNameRequired   = errors.New("campaign name is required")
	ErrCampaignWindowInvalid  = errors.New("campaign window start must be before end")
	ErrCampaignWindowInPast   = errors.New("campaign window ends in the past")
	ErrInvalidStateTransition = errors.New("campaign state transition is not allowed")

	// Content-related errors
	ErrContentNotFound     = errors.New("content not found")
	ErrContentAccessDenied = errors.New("content access denied")
	ErrContentTypeInvalid  = errors.New("content type is invalid")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsScreenNotFound(err error) bool {
	return errors.Is(err, ErrScreenNotFound)
}

func IsScreenAccessDenied(err error) bool {
	return errors.Is(err, ErrScreenAccessDenied)
}

func IsScreenCodeAlreadyExists(err error) bool {
	return errors.Is(err, ErrScreenCodeAlreadyExists)
}

func IsFleetAtCapacity(err error) bool {
	return errors.Is(err, ErrFleetAtCapacity)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsCampaignWindowInvalid(err error) bool {
	return errors.Is(err, ErrCampaignWindowInvalid) || errors.Is(err, ErrCampaignWindowInPast)
}

func IsInvalidStateTransition(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition)
}

func IsContentNotFound(err error) bool {
	return errors.Is(err, ErrContentNotFound)
}

func IsContentAccessDenied(err error) bool {
	return errors.Is(err, ErrContentAccessDenied)
}

func IsContentTypeInvalid(err error) bool {
	return errors.Is(err, ErrContentTypeInvalid)
}
