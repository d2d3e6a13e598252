package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrDuplicateConnection  = errors.New("platform already added")
	ErrNotFound             = errors.New("not found")
	ErrPlatformNotConnected = errors.New("Platform not connected")
	ErrPlatformNotSupported = errors.New("Platform not supported")
)

// ExternalServiceError wraps a failure returned by a platform delivery call.
// Its message is what gets recorded on the delivery result.
type ExternalServiceError struct {
	Platform Platform
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return e.Err.Error()
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func InvalidRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
