package wechat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient("wx-app", "wx-secret").WithBaseURL(srv.URL), srv
}

func TestExchangeCode(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sns/jscode2session", r.URL.Path)
		assert.Equal(t, "wx-app", r.URL.Query().Get("appid"))
		assert.Equal(t, "code-123", r.URL.Query().Get("js_code"))
		w.Write([]byte(`{"openid":"openid-abc","session_key":"sk"}`))
	})
	defer srv.Close()

	openid, err := client.ExchangeCode(context.Background(), "code-123")
	require.NoError(t, err)
	assert.Equal(t, "openid-abc", openid)
}

func TestExchangeCodeProviderError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":40029,"errmsg":"invalid code"}`))
	})
	defer srv.Close()

	_, err := client.ExchangeCode(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestExchangeCodeBadBody(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	})
	defer srv.Close()

	_, err := client.ExchangeCode(context.Background(), "code-123")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestExchangeCodeEmptyCode(t *testing.T) {
	client := NewClient("wx-app", "wx-secret")
	_, err := client.ExchangeCode(context.Background(), "")
	assert.ErrorIs(t, err, ErrAuthFailed)
}
