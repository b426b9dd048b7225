package types

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrNotConnected     = errors.New("not connected to the backend")
	ErrAlreadyConnected = errors.New("already connected")
	ErrAlreadyClosed    = errors.New("connection already closed")
	ErrMissingField     = errors.New("missing required field")
	ErrMissingResult    = errors.New("response carries no result")
	ErrQueueFull        = errors.New("offline queue is full")
	ErrRequestDiscard   = errors.New("request discarded")
	ErrConnectionLost   = errors.New("connection lost")
	ErrClientShutdown   = errors.New("client has been shut down")
)

// APIError is the structured error returned by the backend inside a
// response envelope.
type APIError struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Code    int    `json:"code,omitempty"`
	Status  int    `json:"status,omitempty"`
}

func (e *APIError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("api error %s (status %d): %s", e.ID, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// RequestError reports an invalid request envelope before it is sent.
type RequestError struct {
	Field string
	Err   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: field %s: %v", e.Field, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure of the underlying transport, keeping the
// operation and the request it interrupted.
type TransportError struct {
	Transport string
	Operation string
	RequestID string
	Err       error
}

func (e *TransportError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s transport: %s failed for request %s: %v",
			e.Transport, e.Operation, e.RequestID, e.Err)
	}
	return fmt.Sprintf("%s transport: %s failed: %v", e.Transport, e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
