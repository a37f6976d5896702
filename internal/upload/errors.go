package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResponseFormat marks a 2xx response without a usable reference.
	ErrInvalidResponseFormat = errors.New("invalid response format")
	ErrUploadInProgress      = errors.New("upload already in progress")
	ErrItemNotFound          = errors.New("no pending item at index")
)

// HTTPError is a response outside the 2xx range.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upload failed with status %d", e.StatusCode)
}

// NetworkError is a transport failure before a response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error occurred: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
