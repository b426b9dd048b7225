// Package index wraps the backend's index controller: data index
// lifecycle.
package index

import (
	"context"

	"github.com/kuzzleio/go-sdk/internal/wire"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

// Querier sends a request envelope and returns the correlated response.
type Querier interface {
	Query(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Controller exposes the index controller actions.
type Controller struct {
	q Querier
}

// New creates an index controller bound to a client.
func New(q Querier) *Controller {
	return &Controller{q: q}
}

func scoped(action, index string) (*types.Request, error) {
	if index == "" {
		return nil, &types.RequestError{Field: "index", Err: types.ErrMissingField}
	}
	req := types.NewRequest("index", action)
	req.Index = index
	return req, nil
}

// Create creates a data index.
func (c *Controller) Create(ctx context.Context, index string) error {
	req, err := scoped("create", index)
	if err != nil {
		return err
	}
	_, err = c.q.Query(ctx, req)
	return err
}

// Exists reports whether a data index exists.
func (c *Controller) Exists(ctx context.Context, index string) (bool, error) {
	req, err := scoped("exists", index)
	if err != nil {
		return false, err
	}

	resp, err := c.q.Query(ctx, req)
	if err != nil {
		return false, err
	}
	if !resp.HasResult() {
		return false, types.ErrMissingResult
	}

	var exists bool
	if err := wire.Unmarshal(resp.Result, &exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Delete removes a data index.
func (c *Controller) Delete(ctx context.Context, index string) error {
	req, err := scoped("delete", index)
	if err != nil {
		return err
	}
	_, err = c.q.Query(ctx, req)
	return err
}
