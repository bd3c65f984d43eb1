package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/reflections/internal/models"
	"github.com/wolfeidau/reflections/internal/tokenstore"
)

func TestClient_ReadCache(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /api/blogposts/author/user-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []models.Post{{ID: "p1"}}})
	})
	api.mux.HandleFunc("POST /api/blogposts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Post created", "data": models.Post{ID: "p2"}})
	})

	cfg := DefaultConfig()
	cfg.BaseURL = api.URL
	cfg.Cache = true
	c, err := New(cfg, signedInStore(t, "access-1", "refresh-1"))
	require.NoError(t, err)

	ctx := context.Background()
	for range 3 {
		posts, err := c.PostsByAuthor(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, posts, 1)
	}
	assert.Equal(t, 1, api.count("GET /api/blogposts/author/user-1"), "reads within the window are served from cache")

	res, err := c.CreatePost(ctx, models.PostInput{
		Title:   "New",
		Content: "Some content here",
		Status:  models.PostStatusDraft,
		Author:  &models.PostAuthor{ID: "user-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Post created", res.Message)

	_, err = c.PostsByAuthor(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET /api/blogposts/author/user-1"), "mutation drops the cached listing")
}

func TestClient_ReadCacheIsPerCredential(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /api/blogposts/p1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": models.Post{ID: "p1", Title: r.Header.Get("Authorization")}})
	})

	cfg := DefaultConfig()
	cfg.BaseURL = api.URL
	cfg.Cache = true
	store := signedInStore(t, "access-ada", "refresh-ada")
	c, err := New(cfg, store)
	require.NoError(t, err)

	ctx := context.Background()
	for range 2 {
		post, err := c.GetPost(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Bearer access-ada", post.Title)
	}
	assert.Equal(t, 1, api.count("GET /api/blogposts/p1"))

	require.NoError(t, store.Write(ctx, tokenstore.NewRecord(&models.User{ID: "user-2", Email: "grace@example.com"}, models.TokenPair{
		AccessToken:  "access-grace",
		RefreshToken: "refresh-grace",
	})))

	post, err := c.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-grace", post.Title, "another user never sees a cached read")
	assert.Equal(t, 2, api.count("GET /api/blogposts/p1"))

	require.NoError(t, store.Clear(ctx))
	post, err = c.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, post.Title)
	assert.Equal(t, 3, api.count("GET /api/blogposts/p1"))
}

func TestClient_NoCacheByDefault(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /api/blogposts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []models.Post{}})
	})

	c := newTestClient(t, api, signedInStore(t, "access-1", "refresh-1"))
	for range 2 {
		_, err := c.ListPosts(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, api.count("GET /api/blogposts"))
}

func TestFreshnessTransport(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /with-header", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
	})
	api.mux.HandleFunc("GET /without-header", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tr := &freshnessTransport{next: http.DefaultTransport, maxAge: DefaultRevalidateAfter}

	req, err := http.NewRequest(http.MethodGet, api.URL+"/without-header", nil)
	require.NoError(t, err)
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "private, max-age=10", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "Authorization", resp.Header.Get("Vary"))

	req, err = http.NewRequest(http.MethodGet, api.URL+"/with-header", nil)
	require.NoError(t, err)
	resp, err = tr.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}
