package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-wechat-svc/internal/shared"
	"go-wechat-svc/internal/token"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokenClient(url string, timeout time.Duration) *TokenClient {
	return NewTokenClient(shared.WeChatConfig{
		AppID:        "wx5823bf96d3bd56c7",
		AppSecret:    "secret",
		TokenURL:     url,
		TokenTimeout: timeout,
	}, discardLogger())
}

func TestTokenClientFetchToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cgi-bin/token", r.URL.Path)
		assert.Equal(t, "client_credential", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "wx5823bf96d3bd56c7", r.URL.Query().Get("appid"))
		assert.Equal(t, "secret", r.URL.Query().Get("secret"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ACCESS_TOKEN","expires_in":7200}`))
	}))
	defer srv.Close()

	cred, err := newTestTokenClient(srv.URL+"/cgi-bin/token", time.Second).FetchToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ACCESS_TOKEN", cred.AccessToken)
	assert.Equal(t, 7200*time.Second, cred.ExpiresIn)
}

func TestTokenClientErrCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errcode":40013,"errmsg":"invalid appid"}`))
	}))
	defer srv.Close()

	_, err := newTestTokenClient(srv.URL, time.Second).FetchToken(context.Background())
	require.ErrorIs(t, err, token.ErrRefreshFailed)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 40013, apiErr.Code)
	assert.Equal(t, "invalid appid", apiErr.Msg)
}

func TestTokenClientFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":`))
		}},
		{"missing token", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"expires_in":7200}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestTokenClient(srv.URL, 100*time.Millisecond).FetchToken(context.Background())
			assert.ErrorIs(t, err, token.ErrRefreshFailed)
		})
	}
}

func TestTokenClientDoesNotLogFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errcode":40013,"errmsg":"invalid appid"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	c := NewTokenClient(shared.WeChatConfig{
		AppID:        "wx5823bf96d3bd56c7",
		AppSecret:    "secret",
		TokenURL:     srv.URL,
		TokenTimeout: time.Second,
	}, slog.New(slog.NewTextHandler(&buf, nil)))

	_, err := c.FetchToken(context.Background())
	require.ErrorIs(t, err, token.ErrRefreshFailed)
	assert.NotContains(t, buf.String(), "level=ERROR")
}

func TestTokenClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestTokenClient(url, time.Second).FetchToken(context.Background())
	assert.ErrorIs(t, err, token.ErrRefreshFailed)
}
