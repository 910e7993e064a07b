package http_test

import (
	"net/http"
	"strings"
	"testing"

	gehttp "github.com/fivetwenty-io/ghe-client/internal/http"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hook struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func jsonResponse(contentType, body string) *gehttp.Response {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	return &gehttp.Response{StatusCode: http.StatusOK, Headers: headers, Body: []byte(body)}
}

func TestEncodeBody(t *testing.T) {
	t.Parallel()

	data, contentType, err := gehttp.EncodeBody(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Empty(t, contentType)

	data, contentType, err = gehttp.EncodeBody(map[string]string{"name": "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x"}`, string(data))
	assert.Equal(t, "application/json", contentType)

	data, contentType, err = gehttp.EncodeBody([]byte{0x1f, 0x8b})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, data)
	assert.Equal(t, "application/octet-stream", contentType)

	data, _, err = gehttp.EncodeBody(strings.NewReader("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(data))

	_, _, err = gehttp.EncodeBody(make(chan int))
	require.Error(t, err)
}

func TestCodec_Decode(t *testing.T) {
	t.Parallel()

	codec := gehttp.NewCodec()

	t.Run("vendor json media type", func(t *testing.T) {
		t.Parallel()

		result, err := gehttp.DecodeJSON[hook](codec, jsonResponse("application/vnd.github.eye-scream-preview+json; charset=utf-8", `{"id":3,"name":"lint"}`))
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.ID)
		assert.Equal(t, "lint", result.Name)
	})

	t.Run("missing content type is json", func(t *testing.T) {
		t.Parallel()

		result, err := gehttp.DecodeJSON[hook](codec, jsonResponse("", `{"id":4}`))
		require.NoError(t, err)
		assert.Equal(t, int64(4), result.ID)
	})

	t.Run("void target ignores body", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, codec.Decode(jsonResponse("", ""), nil))
		require.NoError(t, codec.Decode(jsonResponse("text/html", "<html>"), nil))
	})

	t.Run("raw targets", func(t *testing.T) {
		t.Parallel()

		var raw []byte
		require.NoError(t, codec.Decode(jsonResponse("application/octet-stream", "abc"), &raw))
		assert.Equal(t, []byte("abc"), raw)

		var text string
		require.NoError(t, codec.Decode(jsonResponse("text/plain", "hello"), &text))
		assert.Equal(t, "hello", text)
	})

	t.Run("empty body for typed target", func(t *testing.T) {
		t.Parallel()

		_, err := gehttp.DecodeJSON[hook](codec, jsonResponse("application/json", "  "))
		require.ErrorIs(t, err, ghe.ErrEmptyResponseBody)
		assert.True(t, ghe.IsServerError(err))
	})

	t.Run("unsupported media type", func(t *testing.T) {
		t.Parallel()

		_, err := gehttp.DecodeJSON[hook](codec, jsonResponse("text/html", "<html></html>"))
		require.ErrorIs(t, err, ghe.ErrUnsupportedMediaType)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		_, err := gehttp.DecodeJSON[hook](codec, jsonResponse("application/json", "{"))
		require.Error(t, err)
		assert.True(t, ghe.IsServerError(err))
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()

		var target hook
		require.True(t, ghe.IsArgumentInvalid(codec.Decode(nil, &target)))
	})
}
