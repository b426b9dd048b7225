// Package auth wraps the backend's auth controller: token acquisition,
// validation and revocation.
package auth

import (
	"context"

	"github.com/kuzzleio/go-sdk/internal/wire"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

// Querier sends a request envelope and manages the client's stored token.
type Querier interface {
	Query(ctx context.Context, req *types.Request) (*types.Response, error)
	SetJwt(token string)
}

// Controller exposes the auth controller actions.
type Controller struct {
	q Querier
}

// New creates an auth controller bound to a client.
func New(q Querier) *Controller {
	return &Controller{q: q}
}

// Login authenticates against the given strategy and stores the returned
// token on the client so that subsequent requests carry it.
func (c *Controller) Login(ctx context.Context, strategy string, credentials interface{}, expiresIn string) (string, error) {
	if strategy == "" {
		return "", &types.RequestError{Field: "strategy", Err: types.ErrMissingField}
	}

	body, err := wire.Marshal(credentials)
	if err != nil {
		return "", err
	}

	req := types.NewRequest("auth", "login")
	req.Strategy = strategy
	req.ExpiresIn = expiresIn
	req.Body = body

	resp, err := c.q.Query(ctx, req)
	if err != nil {
		return "", err
	}
	if !resp.HasResult() {
		return "", types.ErrMissingResult
	}

	var result struct {
		Jwt string `json:"jwt"`
	}
	if err := wire.Unmarshal(resp.Result, &result); err != nil {
		return "", err
	}

	c.q.SetJwt(result.Jwt)
	return result.Jwt, nil
}

// Logout revokes the current token and clears it from the client.
func (c *Controller) Logout(ctx context.Context) error {
	_, err := c.q.Query(ctx, types.NewRequest("auth", "logout"))
	if err != nil {
		return err
	}
	c.q.SetJwt("")
	return nil
}

// TokenValidity is the result of a checkToken action.
type TokenValidity struct {
	Valid     bool   `json:"valid"`
	State     string `json:"state,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// CheckToken asks the backend whether a token is still valid.
func (c *Controller) CheckToken(ctx context.Context, token string) (*TokenValidity, error) {
	body, err := wire.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}

	req := types.NewRequest("auth", "checkToken")
	req.Body = body

	resp, err := c.q.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.HasResult() {
		return nil, types.ErrMissingResult
	}

	validity := &TokenValidity{}
	if err := wire.Unmarshal(resp.Result, validity); err != nil {
		return nil, err
	}
	return validity, nil
}
