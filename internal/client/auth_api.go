package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wolfeidau/reflections/internal/models"
)

// Signup registers a new account. The response carries a token pair and the new profile.
func (c *Client) Signup(ctx context.Context, in models.SignupRequest) (*Result[models.AuthResponse], error) {
	res := &Result[models.AuthResponse]{}
	msg, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/signup", body: in, anonymous: true}, &res.Data)
	if err != nil {
		return nil, err
	}
	res.Message = msg
	return res, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, in models.LoginRequest) (*Result[models.AuthResponse], error) {
	res := &Result[models.AuthResponse]{}
	msg, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: in, anonymous: true}, &res.Data)
	if err != nil {
		return nil, err
	}
	res.Message = msg
	return res, nil
}

// RefreshToken mints a new token pair without touching the token store.
func (c *Client) RefreshToken(ctx context.Context, in models.RefreshRequest) (*models.TokenPair, error) {
	var pair models.TokenPair
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/refresh-token", body: in, anonymous: true}, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// GetUser fetches a profile by id.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/users/id/" + url.PathEscape(id)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile updates the authenticated user's profile.
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*Result[models.User], error) {
	res := &Result[models.User]{}
	msg, err := c.do(ctx, request{method: http.MethodPost, path: "/users/update", body: in}, &res.Data)
	if err != nil {
		return nil, err
	}
	res.Message = msg
	if res.Data.ID != "" {
		c.invalidate("/users/id/" + url.PathEscape(res.Data.ID))
	}
	return res, nil
}

// Version calls the actuator endpoint, used as a readiness probe. The actuator answers
// with a plain text banner rather than the JSON envelope.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.send(ctx, request{method: http.MethodGet, path: "/actuator/version", anonymous: true}, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", &APIError{Kind: KindUnreachable, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Kind: KindHTTP, Status: resp.StatusCode}
	}
	return strings.TrimSpace(string(body)), nil
}
