package sdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "secret")
}

func TestSync_Progress(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, v1SyncProgress, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":25,"progress":10,"direction":"forward","complete":false,"enabled":true}`))
	})

	p, err := c.Sync.Progress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Progress{Total: 25, Progress: 10, Direction: "forward", Enabled: true}, p)
}

func TestSync_DisableError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"ERR_NOT_CONFIGURED","error":"storage: not configured"}`))
	})

	_, err := c.Sync.Disable(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ERR_NOT_CONFIGURED", apiErr.Code)
}

func TestSettings_Update(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"settings":{"space_name":"media","region":"ams3","secret_key":"****cret"},"complete":true}`))
	})

	res, err := c.Settings.Update(context.Background(), &Settings{SpaceName: "media", Region: "ams3"})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, "****cret", res.Settings.SecretKey)
}

func TestAssets_URL(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/assets/42/url", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"url":"https://cdn.example.com/wp-content/uploads/a.jpg"}`))
	})

	res, err := c.Assets.URL(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/wp-content/uploads/a.jpg", res.URL)
}

func TestNew_AddsScheme(t *testing.T) {
	c := New("localhost:7939", "")
	assert.Equal(t, "http://localhost:7939", c.client.BaseURL)
}
