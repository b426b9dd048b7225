package document

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

func okResult(raw string) *types.Response {
	return &types.Response{Status: 200, Result: json.RawMessage(raw)}
}

func TestCreate(t *testing.T) {
	q := &fakeQuerier{resp: okResult(`{"_id":"driver-42","_source":{"name":"Ada"}}`)}
	c := New(q)

	created, err := c.Create(context.Background(), "nyc-open-data", "yellow-taxi", "driver-42",
		map[string]string{"name": "Ada"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"driver-42","_source":{"name":"Ada"}}`, string(created))

	assert.Equal(t, "document", q.lastReq.Controller)
	assert.Equal(t, "create", q.lastReq.Action)
	assert.Equal(t, "nyc-open-data", q.lastReq.Index)
	assert.Equal(t, "yellow-taxi", q.lastReq.Collection)
	assert.Equal(t, "driver-42", q.lastReq.ID)
	assert.JSONEq(t, `{"name":"Ada"}`, string(q.lastReq.Body))
}

func TestCreateRequiresScope(t *testing.T) {
	c := New(&fakeQuerier{})

	_, err := c.Create(context.Background(), "", "yellow-taxi", "", nil)
	assert.ErrorIs(t, err, types.ErrMissingField)

	_, err = c.Create(context.Background(), "nyc-open-data", "", "", nil)
	assert.ErrorIs(t, err, types.ErrMissingField)
}

func TestGetRequiresID(t *testing.T) {
	c := New(&fakeQuerier{})

	_, err := c.Get(context.Background(), "nyc-open-data", "yellow-taxi", "")
	assert.ErrorIs(t, err, types.ErrMissingField)
}

func TestGet(t *testing.T) {
	q := &fakeQuerier{resp: okResult(`{"_id":"driver-42","_source":{"name":"Ada"}}`)}
	c := New(q)

	doc, err := c.Get(context.Background(), "nyc-open-data", "yellow-taxi", "driver-42")
	require.NoError(t, err)
	assert.Contains(t, string(doc), "driver-42")
	assert.Equal(t, "get", q.lastReq.Action)
}

func TestUpdateFromSendsOnlyChanges(t *testing.T) {
	q := &fakeQuerier{resp: okResult(`{"_id":"driver-42"}`)}
	c := New(q)

	original := []byte(`{"name":"Ada","licenses":1,"city":"Paris"}`)
	modified := []byte(`{"name":"Ada","licenses":2,"city":"Paris"}`)

	_, err := c.UpdateFrom(context.Background(), "nyc-open-data", "yellow-taxi", "driver-42",
		original, modified)
	require.NoError(t, err)

	assert.Equal(t, "update", q.lastReq.Action)
	assert.JSONEq(t, `{"licenses":2}`, string(q.lastReq.Body))
}

func TestUpdateFromNoChanges(t *testing.T) {
	q := &fakeQuerier{}
	c := New(q)

	doc := []byte(`{"name":"Ada"}`)
	result, err := c.UpdateFrom(context.Background(), "nyc-open-data", "yellow-taxi", "driver-42", doc, doc)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Nil(t, q.lastReq, "identical versions must not hit the backend")
}

func TestUpdateFromRemovedField(t *testing.T) {
	q := &fakeQuerier{resp: okResult(`{"_id":"driver-42"}`)}
	c := New(q)

	original := []byte(`{"name":"Ada","nickname":"countess"}`)
	modified := []byte(`{"name":"Ada"}`)

	_, err := c.UpdateFrom(context.Background(), "nyc-open-data", "yellow-taxi", "driver-42",
		original, modified)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nickname":null}`, string(q.lastReq.Body))
}

func TestDelete(t *testing.T) {
	q := &fakeQuerier{resp: okResult(`{"_id":"driver-42"}`)}
	c := New(q)

	require.NoError(t, c.Delete(context.Background(), "nyc-open-data", "yellow-taxi", "driver-42"))
	assert.Equal(t, "delete", q.lastReq.Action)
	assert.Equal(t, "driver-42", q.lastReq.ID)
}
