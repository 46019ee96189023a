package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_OK(t *testing.T) {
	resp := NewResponse(`{"photos":{"page":1,"photo":[{"id":"42","title":"sunset"}]},"stat":"ok"}`)

	assert.True(t, resp.IsJSON())
	assert.Equal(t, "ok", resp.Stat())
	assert.False(t, resp.IsFail())
	assert.NoError(t, resp.Err())
	assert.Equal(t, "42", resp.Get("photos.photo.0.id").String())
	assert.Equal(t, int64(1), resp.Get("photos.page").Int())
}

func TestResponse_Fail(t *testing.T) {
	resp := NewResponse(`{"stat":"fail","code":100,"message":"Invalid API Key (Key has invalid format)"}`)

	assert.True(t, resp.IsFail())
	assert.Equal(t, 100, resp.ErrorCode())
	assert.Equal(t, "Invalid API Key (Key has invalid format)", resp.ErrorMessage())

	err := resp.Err()
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 100, apiErr.Code)
	assert.Contains(t, err.Error(), "Invalid API Key")
}

func TestResponse_NotJSON(t *testing.T) {
	resp := NewResponse("oauth_token=abc&oauth_token_secret=def")

	assert.False(t, resp.IsJSON())
	assert.Equal(t, "", resp.Stat())
	assert.NoError(t, resp.Err())
	assert.Equal(t, "oauth_token=abc&oauth_token_secret=def", resp.Pretty())
	assert.Equal(t, resp.Raw(), resp.String())
}

func TestResponse_Pretty(t *testing.T) {
	resp := NewResponse(`{"stat":"ok"}`)
	assert.Contains(t, resp.Pretty(), "\n")
	assert.Contains(t, resp.Pretty(), `"stat": "ok"`)
}
