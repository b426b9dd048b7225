package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Request is the envelope sent to the backend. The controller/action pair
// addresses the remote procedure; the remaining fields are optional and
// depend on the targeted API route.
type Request struct {
	// RequestID uniquely identifies the request so that transports can
	// correlate the matching response. Filled with a UUID v4 when empty.
	RequestID string `json:"requestId,omitempty"`

	// Controller is the API resource group (e.g. "server", "document").
	Controller string `json:"controller"`

	// Action is the operation within the controller (e.g. "now", "create").
	Action string `json:"action"`

	// Index and Collection scope data-related actions.
	Index      string `json:"index,omitempty"`
	Collection string `json:"collection,omitempty"`

	// ID targets a single document for document-scoped actions.
	ID string `json:"_id,omitempty"`

	// Jwt is the authentication token attached to the request.
	Jwt string `json:"jwt,omitempty"`

	// Strategy and ExpiresIn are used by authentication actions.
	Strategy  string `json:"strategy,omitempty"`
	ExpiresIn string `json:"expiresIn,omitempty"`

	// Body is the action payload, kept raw so that callers control the
	// exact JSON sent on the wire.
	Body json.RawMessage `json:"body,omitempty"`

	// Volatile is arbitrary metadata echoed back in the response.
	Volatile json.RawMessage `json:"volatile,omitempty"`
}

// NewRequest creates a request for the given controller/action pair with a
// generated request identifier.
func NewRequest(controller, action string) *Request {
	return &Request{
		RequestID:  uuid.NewString(),
		Controller: controller,
		Action:     action,
	}
}

// EnsureID fills the request identifier with a UUID v4 if it is empty and
// returns it.
func (r *Request) EnsureID() string {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	return r.RequestID
}

// Validate checks that the request addresses a complete controller/action
// pair.
func (r *Request) Validate() error {
	if r.Controller == "" {
		return &RequestError{Field: "controller", Err: ErrMissingField}
	}
	if r.Action == "" {
		return &RequestError{Field: "action", Err: ErrMissingField}
	}
	return nil
}
