package client

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/reflections/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantMsg    string
		wantTitle  string
		wantKind   Kind
		wantStatus int
		wantErrMsg string
	}{
		{
			name:       "success with data",
			statusCode: http.StatusOK,
			body:       `{"status":200,"message":"Success","data":{"id":"p1","title":"Hello"}}`,
			wantMsg:    "Success",
			wantTitle:  "Hello",
		},
		{
			name:       "success without envelope status",
			statusCode: http.StatusCreated,
			body:       `{"data":{"id":"p1","title":"Created"}}`,
			wantTitle:  "Created",
		},
		{
			name:       "success with empty body",
			statusCode: http.StatusNoContent,
			body:       "",
		},
		{
			name:       "http failure with message",
			statusCode: http.StatusNotFound,
			body:       `{"status":404,"message":"Post not found"}`,
			wantKind:   KindHTTP,
			wantStatus: http.StatusNotFound,
			wantErrMsg: "Post not found",
		},
		{
			name:       "body status failure on http 200",
			statusCode: http.StatusOK,
			body:       `{"status":409,"message":"Email already taken"}`,
			wantKind:   KindHTTP,
			wantStatus: http.StatusConflict,
			wantErrMsg: "Email already taken",
		},
		{
			name:       "http failure without json body",
			statusCode: http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantKind:   KindHTTP,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "success with garbage body",
			statusCode: http.StatusOK,
			body:       `not json`,
			wantKind:   KindDecode,
			wantStatus: http.StatusOK,
		},
		{
			name:       "success with mistyped data",
			statusCode: http.StatusOK,
			body:       `{"data":"a string"}`,
			wantKind:   KindDecode,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var post models.Post
			msg, err := normalize(tt.statusCode, []byte(tt.body), &post)

			if tt.wantKind == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMsg, msg)
				assert.Equal(t, tt.wantTitle, post.Title)
				return
			}

			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantErrMsg, apiErr.Message)
		})
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Kind: KindHTTP, Status: 400, Message: "Title is required"}
	assert.Equal(t, "api error (400): Title is required", err.Error())
	assert.Equal(t, "Title is required", err.MessageOr("fallback"))
	assert.Equal(t, "fallback", (&APIError{Kind: KindHTTP, Status: 500}).MessageOr("fallback"))

	unreachable := &APIError{Kind: KindUnreachable, Err: errors.New("dial tcp: refused")}
	assert.ErrorIs(t, unreachable, ErrUnreachable)
	assert.NotErrorIs(t, unreachable, ErrSessionExpired)
	assert.Contains(t, unreachable.Error(), "unreachable")
}
