package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/reflections/internal/models"
	"github.com/wolfeidau/reflections/internal/tokenstore"
)

var ada = models.User{
	ID:        "user-1",
	FirstName: "Ada",
	LastName:  "Lovelace",
	Email:     "ada@example.com",
	Username:  "ada",
	Role:      models.RoleAuthor,
}

type fakeAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu    sync.Mutex
	calls map[string]int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux(), calls: map[string]int{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)

	f.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, "Login successful", models.AuthResponse{
			TokenPair: models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
			Profile:   &ada,
		})
	})
	f.mux.HandleFunc("GET /users/id/{id}", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, "", ada)
	})
	return f
}

func (f *fakeAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func envelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "message": message, "data": data})
}

func testGlobals(t *testing.T, api *fakeAPI) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	return &Globals{
		Version:   "test",
		APIURL:    api.URL,
		ConfigDir: t.TempDir(),
		NoCache:   true,
		Out:       &out,
		Err:       &errOut,
	}, &out, &errOut
}

func login(t *testing.T, g *Globals) {
	t.Helper()
	require.NoError(t, (&LoginCmd{Email: ada.Email, Password: "secret"}).Run(context.Background(), g))
}

func TestLoginWhoamiLogout(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	g, out, _ := testGlobals(t, api)

	login(t, g)
	assert.Contains(t, out.String(), "Login successful!")
	assert.Contains(t, out.String(), "Signed in as Ada Lovelace (ada@example.com)")

	store, err := tokenstore.NewFileStore(g.ConfigDir)
	require.NoError(t, err)
	rec, err := store.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "refresh-1", rec.RefreshToken)

	out.Reset()
	require.NoError(t, (&WhoamiCmd{}).Run(ctx, g))
	assert.Contains(t, out.String(), "Username: ada")
	assert.Contains(t, out.String(), "Expires:  unknown")
	assert.Equal(t, 1, api.count("GET /users/id/user-1"))

	out.Reset()
	require.NoError(t, (&LogoutCmd{}).Run(ctx, g))
	assert.Contains(t, out.String(), "Signed out.")

	out.Reset()
	require.NoError(t, (&WhoamiCmd{}).Run(ctx, g))
	assert.Equal(t, "Not signed in.\n", out.String())
}

func TestLogoutRemovesReadCache(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	g, _, _ := testGlobals(t, api)
	g.NoCache = false

	login(t, g)
	require.NoError(t, (&WhoamiCmd{}).Run(ctx, g))

	cache := filepath.Join(g.ConfigDir, "cache")
	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	require.NotEmpty(t, entries, "the profile read was cached")

	require.NoError(t, (&LogoutCmd{}).Run(ctx, g))
	assert.NoDirExists(t, cache)
}

func TestLoginValidation(t *testing.T) {
	api := newFakeAPI(t)
	g, _, _ := testGlobals(t, api)

	err := (&LoginCmd{Email: "nope", Password: "x"}).Run(context.Background(), g)
	require.EqualError(t, err, "Please enter a valid email")
	assert.Zero(t, api.count("POST /auth/login"))
}

func TestPostsList(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /api/blogposts/author/{id}", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, "", []models.Post{{ID: "p1", Title: "Mine", Status: models.PostStatusDraft, Author: models.AuthorFromUser(&ada)}})
	})
	api.mux.HandleFunc("GET /api/blogposts", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, "", []models.Post{})
	})
	g, out, _ := testGlobals(t, api)

	err := (&PostsListCmd{}).Run(ctx, g)
	require.ErrorContains(t, err, "not signed in")

	require.NoError(t, (&PostsListCmd{All: true}).Run(ctx, g))
	assert.Contains(t, out.String(), "No posts found.")

	login(t, g)
	out.Reset()
	require.NoError(t, (&PostsListCmd{}).Run(ctx, g))
	assert.Contains(t, out.String(), "Mine")
	assert.Contains(t, out.String(), "DRAFT")
}

func TestPostsCreateFromFile(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	var got models.PostInput
	api.mux.HandleFunc("POST /api/blogposts", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		envelope(w, http.StatusCreated, "Blog post created", models.Post{ID: "p9", Title: got.Title})
	})
	g, out, _ := testGlobals(t, api)
	login(t, g)

	content := filepath.Join(t.TempDir(), "post.html")
	require.NoError(t, os.WriteFile(content, []byte("<p>"+strings.Repeat("x", 200)+"</p>"), 0600))

	out.Reset()
	err := (&PostsCreateCmd{PostFields: PostFields{Title: "Hello", ContentFile: content, Status: "DRAFT"}}).Run(ctx, g)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Blog post created")
	assert.Contains(t, out.String(), "ID: p9")
	assert.Len(t, []rune(got.Excerpt), 150)
	require.NotNil(t, got.Author)
	assert.Equal(t, "ada", got.Author.Username)
}

func TestPostFieldsStatus(t *testing.T) {
	form, err := PostFields{Title: "Hello", Content: "<p>Some content</p>", Status: " published "}.form()
	require.NoError(t, err)
	assert.Equal(t, "PUBLISHED", form.Get("status"))

	_, err = PostFields{Title: "Hello", Content: "<p>Some content</p>", Status: "later"}.form()
	require.ErrorContains(t, err, "invalid --status")
}

func TestSessionExpiredNotice(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	api.mux.HandleFunc("DELETE /api/blogposts/{id}", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusUnauthorized, "expired", nil)
	})
	api.mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusUnauthorized, "invalid refresh token", nil)
	})
	g, _, errOut := testGlobals(t, api)
	login(t, g)

	err := (&PostsDeleteCmd{ID: "p1"}).Run(ctx, g)
	require.EqualError(t, err, "Your session has expired. Please log in again.")
	assert.Contains(t, errOut.String(), SessionExpiredNotice)

	store, err := tokenstore.NewFileStore(g.ConfigDir)
	require.NoError(t, err)
	rec, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec, "the stored session is cleared")
}

func TestRephraseWithoutGenerator(t *testing.T) {
	api := newFakeAPI(t)
	g, _, _ := testGlobals(t, api)

	file := filepath.Join(t.TempDir(), "doc.html")
	require.NoError(t, os.WriteFile(file, []byte("<p>hello world</p>"), 0600))

	err := (&RephraseCmd{File: file, Match: "world"}).Run(context.Background(), g)
	require.EqualError(t, err, "Rephrasing is not configured.")

	err = (&RephraseCmd{File: file, Match: "missing"}).Run(context.Background(), g)
	require.ErrorContains(t, err, "invalid selection")
}
