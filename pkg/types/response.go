package types

import "encoding/json"

// Response is the envelope received from the backend. Result and Error are
// both optional: a successful response may carry no payload at all.
type Response struct {
	RequestID  string          `json:"requestId"`
	Status     int             `json:"status"`
	Node       string          `json:"node,omitempty"`
	Controller string          `json:"controller,omitempty"`
	Action     string          `json:"action,omitempty"`
	Index      string          `json:"index,omitempty"`
	Collection string          `json:"collection,omitempty"`
	Error      *APIError       `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Volatile   json.RawMessage `json:"volatile,omitempty"`
}

// Err returns the response error as a Go error, or nil. A response is in
// error when the backend set the error field or a non-2xx status.
func (r *Response) Err() error {
	if r.Error != nil {
		if r.Error.Status == 0 {
			r.Error.Status = r.Status
		}
		return r.Error
	}
	if r.Status >= 400 {
		return &APIError{Status: r.Status, Message: "request failed"}
	}
	return nil
}

// HasResult reports whether the backend returned a payload.
func (r *Response) HasResult() bool {
	return len(r.Result) > 0 && string(r.Result) != "null"
}
