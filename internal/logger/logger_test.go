package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rhttp "github.com/wolfeidau/reflections/internal/http"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	engine := gin.New()
	engine.Use(RequestLogger(logger))
	engine.GET("/posts/:id", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside handler")
		c.Status(http.StatusNotFound)
	})

	handler := rhttp.Chain(engine, rhttp.RequestIDMiddleware(), rhttp.ClientIPMiddleware())

	r := httptest.NewRequest(http.MethodGet, "/posts/p1", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, done map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &done))

	assert.Equal(t, w.Header().Get(rhttp.RequestIDHeader), inner["request_id"])
	assert.Equal(t, "203.0.113.1", inner["client_ip"])

	assert.Equal(t, "warn", done["level"])
	assert.Equal(t, "/posts/:id", done["path"])
	assert.EqualValues(t, http.StatusNotFound, done["status"])
	assert.Equal(t, http.MethodGet, done["method"])
}
