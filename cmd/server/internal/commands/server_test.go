package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/tokenstore"
	"github.com/wolfeidau/reflections/internal/web"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testHandler(t *testing.T, cmd *ServerCmd) http.Handler {
	t.Helper()

	binder, closeBinder, err := cmd.binder(context.Background(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(closeBinder)

	h, err := cmd.handler(web.Config{Client: client.DefaultConfig(), Binder: binder, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return h
}

func TestServerCmd_Binder(t *testing.T) {
	t.Run("cookie store requires a secret", func(t *testing.T) {
		_, _, err := (&ServerCmd{SessionStore: "cookie"}).binder(context.Background(), zerolog.Nop())
		require.ErrorContains(t, err, "session secret is required")
	})

	t.Run("short secret", func(t *testing.T) {
		_, _, err := (&ServerCmd{SessionStore: "cookie", SessionSecret: "short"}).binder(context.Background(), zerolog.Nop())
		require.ErrorIs(t, err, tokenstore.ErrInvalidSecret)
	})

	t.Run("cookie store", func(t *testing.T) {
		b, closeFn, err := (&ServerCmd{SessionStore: "cookie", SessionSecret: testSecret}).binder(context.Background(), zerolog.Nop())
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &tokenstore.CookieBinder{}, b)
	})
}

func TestServerCmd_Handler(t *testing.T) {
	cmd := &ServerCmd{
		SessionStore:  "cookie",
		SessionSecret: testSecret,
		CORSOrigins:   []string{"https://app.example.com"},
	}
	h := testHandler(t, cmd)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/actions/login", nil)
		r.Header.Set("Origin", "https://app.example.com")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("cross site form post is rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/actions/logout", strings.NewReader(""))
		r.Header.Set("Sec-Fetch-Site", "cross-site")
		r.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("responses are compressed on request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/actions/posts?all=false", nil)
		r.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, strings.Join(w.Header().Values("Vary"), ","), "Accept-Encoding")
	})
}
