package auth

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuzzleio/go-sdk/pkg/types"
)

type fakeQuerier struct {
	lastReq *types.Request
	resp    *types.Response
	err     error
	jwt     string
	jwtSet  bool
}

func (f *fakeQuerier) Query(_ context.Context, req *types.Request) (*types.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeQuerier) SetJwt(token string) {
	f.jwt = token
	f.jwtSet = true
}

func TestLogin(t *testing.T) {
	q := &fakeQuerier{resp: &types.Response{Status: 200, Result: json.RawMessage(`{"_id":"ada","jwt":"fresh-token"}`)}}
	c := New(q)

	token, err := c.Login(context.Background(), "local",
		map[string]string{"username": "ada", "password": "secret"}, "1h")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	// The token must now travel with subsequent requests.
	assert.True(t, q.jwtSet)
	assert.Equal(t, "fresh-token", q.jwt)

	assert.Equal(t, "auth", q.lastReq.Controller)
	assert.Equal(t, "login", q.lastReq.Action)
	assert.Equal(t, "local", q.lastReq.Strategy)
	assert.Equal(t, "1h", q.lastReq.ExpiresIn)
	assert.JSONEq(t, `{"username":"ada","password":"secret"}`, string(q.lastReq.Body))
}

func TestLoginRequiresStrategy(t *testing.T) {
	c := New(&fakeQuerier{})

	_, err := c.Login(context.Background(), "", nil, "")
	assert.ErrorIs(t, err, types.ErrMissingField)
}

func TestLoginMissingResult(t *testing.T) {
	q := &fakeQuerier{resp: &types.Response{Status: 200}}
	c := New(q)

	_, err := c.Login(context.Background(), "local", nil, "")
	assert.ErrorIs(t, err, types.ErrMissingResult)
	assert.False(t, q.jwtSet)
}

func TestLogoutClearsToken(t *testing.T) {
	q := &fakeQuerier{resp: &types.Response{Status: 200}, jwt: "stale"}
	c := New(q)

	require.NoError(t, c.Logout(context.Background()))
	assert.True(t, q.jwtSet)
	assert.Empty(t, q.jwt)
	assert.Equal(t, "logout", q.lastReq.Action)
}

func TestLogoutFailureKeepsToken(t *testing.T) {
	q := &fakeQuerier{err: types.ErrNotConnected, jwt: "kept"}
	c := New(q)

	require.Error(t, c.Logout(context.Background()))
	assert.False(t, q.jwtSet)
}

func TestCheckToken(t *testing.T) {
	q := &fakeQuerier{resp: &types.Response{
		Status: 200,
		Result: json.RawMessage(`{"valid":false,"state":"expired","expiresAt":42}`),
	}}
	c := New(q)

	validity, err := c.CheckToken(context.Background(), "some-token")
	require.NoError(t, err)
	assert.False(t, validity.Valid)
	assert.Equal(t, "expired", validity.State)
	assert.Equal(t, int64(42), validity.ExpiresAt)
	assert.JSONEq(t, `{"token":"some-token"}`, string(q.lastReq.Body))
}
