package webhook

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a webhook call failed.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindAborted    ErrorKind = "aborted"
	KindHTTPStatus ErrorKind = "http_status"
)

// Error is returned by Client.Post for every failed call.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	// Body holds the first part of a non-2xx response, for logging.
	Body string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	case KindTimeout:
		return fmt.Sprintf("webhook timed out: %v", e.Err)
	default:
		return fmt.Sprintf("webhook %s error: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var werr *Error
	if errors.As(err, &werr) {
		return werr, true
	}
	return nil, false
}
