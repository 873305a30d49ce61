package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every caller error detected before I/O.
var ErrValidation = errors.New("invalid request")

// ErrProcessingFailed is matched by ProcessingError.
var ErrProcessingFailed = errors.New("climate service could not process request")

// ValidationError names the offending field and why it was rejected.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ProcessingError is returned by convenience fetches when the service
// answered but could not compute the request.
type ProcessingError struct {
	RequestHash string
	Message     string
}

func (e *ProcessingError) Error() string {
	if e.Message == "" {
		return ErrProcessingFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrProcessingFailed.Error(), e.Message)
}

// Is makes errors.Is(err, ErrProcessingFailed) succeed.
func (e *ProcessingError) Is(target error) bool { return target == ErrProcessingFailed }
