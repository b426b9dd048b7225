// Package document wraps the backend's document controller: CRUD on
// persisted documents.
package document

import (
	"bytes"
	"context"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/kuzzleio/go-sdk/internal/wire"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

// Querier sends a request envelope and returns the correlated response.
type Querier interface {
	Query(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Controller exposes the document controller actions.
type Controller struct {
	q Querier
}

// New creates a document controller bound to a client.
func New(q Querier) *Controller {
	return &Controller{q: q}
}

func scoped(action, index, collection, id string) (*types.Request, error) {
	if index == "" {
		return nil, &types.RequestError{Field: "index", Err: types.ErrMissingField}
	}
	if collection == "" {
		return nil, &types.RequestError{Field: "collection", Err: types.ErrMissingField}
	}
	req := types.NewRequest("document", action)
	req.Index = index
	req.Collection = collection
	req.ID = id
	return req, nil
}

// Create persists a new document and returns the created document as the
// backend stored it. The id is optional; the backend assigns one when
// empty.
func (c *Controller) Create(ctx context.Context, index, collection, id string, content interface{}) (json.RawMessage, error) {
	req, err := scoped("create", index, collection, id)
	if err != nil {
		return nil, err
	}
	if req.Body, err = wire.Marshal(content); err != nil {
		return nil, err
	}

	resp, err := c.q.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.HasResult() {
		return nil, types.ErrMissingResult
	}
	return resp.Result, nil
}

// Get fetches a document by id.
func (c *Controller) Get(ctx context.Context, index, collection, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, &types.RequestError{Field: "_id", Err: types.ErrMissingField}
	}
	req, err := scoped("get", index, collection, id)
	if err != nil {
		return nil, err
	}

	resp, err := c.q.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.HasResult() {
		return nil, types.ErrMissingResult
	}
	return resp.Result, nil
}

// Update applies a partial update to a document.
func (c *Controller) Update(ctx context.Context, index, collection, id string, changes interface{}) (json.RawMessage, error) {
	if id == "" {
		return nil, &types.RequestError{Field: "_id", Err: types.ErrMissingField}
	}
	req, err := scoped("update", index, collection, id)
	if err != nil {
		return nil, err
	}
	if req.Body, err = wire.Marshal(changes); err != nil {
		return nil, err
	}

	resp, err := c.q.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.HasResult() {
		return nil, types.ErrMissingResult
	}
	return resp.Result, nil
}

// UpdateFrom computes the merge patch between two versions of a document
// and sends only the changed fields. It is a no-op when the versions are
// identical.
func (c *Controller) UpdateFrom(ctx context.Context, index, collection, id string, original, modified []byte) (json.RawMessage, error) {
	patch, err := jsonpatch.CreateMergePatch(original, modified)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(patch, []byte("{}")) {
		return nil, nil
	}
	return c.Update(ctx, index, collection, id, json.RawMessage(patch))
}

// Delete removes a document by id.
func (c *Controller) Delete(ctx context.Context, index, collection, id string) error {
	if id == "" {
		return &types.RequestError{Field: "_id", Err: types.ErrMissingField}
	}
	req, err := scoped("delete", index, collection, id)
	if err != nil {
		return err
	}

	_, err = c.q.Query(ctx, req)
	return err
}
