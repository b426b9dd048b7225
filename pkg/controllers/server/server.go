// Package server wraps the backend's server controller: runtime
// information and clock queries.
package server

import (
	"context"
	"encoding/json"

	"github.com/kuzzleio/go-sdk/internal/wire"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

// Querier sends a request envelope and returns the correlated response.
type Querier interface {
	Query(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Controller exposes the server controller actions.
type Controller struct {
	q Querier
}

// New creates a server controller bound to a client.
func New(q Querier) *Controller {
	return &Controller{q: q}
}

// Now returns the backend's current time as an epoch timestamp in
// milliseconds. A connected backend always returns a present numeric
// timestamp; a missing result is reported as ErrMissingResult.
func (c *Controller) Now(ctx context.Context) (int64, error) {
	resp, err := c.q.Query(ctx, types.NewRequest("server", "now"))
	if err != nil {
		return 0, err
	}
	if !resp.HasResult() {
		return 0, types.ErrMissingResult
	}

	var result struct {
		Now int64 `json:"now"`
	}
	if err := wire.Unmarshal(resp.Result, &result); err != nil {
		return 0, err
	}
	return result.Now, nil
}

// Info returns the raw server description.
func (c *Controller) Info(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.q.Query(ctx, types.NewRequest("server", "info"))
	if err != nil {
		return nil, err
	}
	if !resp.HasResult() {
		return nil, types.ErrMissingResult
	}
	return resp.Result, nil
}

// AdminExists reports whether an administrator account has been created.
func (c *Controller) AdminExists(ctx context.Context) (bool, error) {
	resp, err := c.q.Query(ctx, types.NewRequest("server", "adminExists"))
	if err != nil {
		return false, err
	}
	if !resp.HasResult() {
		return false, types.ErrMissingResult
	}

	var result struct {
		Exists bool `json:"exists"`
	}
	if err := wire.Unmarshal(resp.Result, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}
