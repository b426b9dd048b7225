package index

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
}

func (f *fakeQuerier) Query(_ context.Context, req *types.Request) (*types.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestCreate(t *testing.T) {
	q := &fakeQuerier{resp: &types.Response{Status: 200}}
	c := New(q)

	require.NoError(t, c.Create(context.Background(), "nyc-open-data"))
	assert.Equal(t, "index", q.lastReq.Controller)
	assert.Equal(t, "create", q.lastReq.Action)
	assert.Equal(t, "nyc-open-data", q.lastReq.Index)
}

func TestCreateRequiresIndex(t *testing.T) {
	c := New(&fakeQuerier{})
	assert.ErrorIs(t, c.Create(context.Background(), ""), types.ErrMissingField)
}

func TestExists(t *testing.T) {
	q := &fakeQuerier{resp: &types.Response{Status: 200, Result: json.RawMessage(`true`)}}
	c := New(q)

	exists, err := c.Exists(context.Background(), "nyc-open-data")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "exists", q.lastReq.Action)
}

func TestExistsMissingResult(t *testing.T) {
	q := &fakeQuerier{resp: &types.Response{Status: 200}}
	c := New(q)

	_, err := c.Exists(context.Background(), "nyc-open-data")
	assert.ErrorIs(t, err, types.ErrMissingResult)
}

func TestDelete(t *testing.T) {
	q := &fakeQuerier{resp: &types.Response{Status: 200}}
	c := New(q)

	require.NoError(t, c.Delete(context.Background(), "nyc-open-data"))
	assert.Equal(t, "delete", q.lastReq.Action)
}
