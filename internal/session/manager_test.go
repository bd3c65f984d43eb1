package session

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/models"
	"github.com/wolfeidau/reflections/internal/tokenstore"
)

var ada = &models.User{
	ID:        "user-1",
	FirstName: "Ada",
	LastName:  "Lovelace",
	Email:     "ada@example.com",
	Username:  "ada",
	Role:      models.RoleAuthor,
}

type fakeAPI struct {
	loginRes  *client.Result[models.AuthResponse]
	loginErr  error
	signupRes *client.Result[models.AuthResponse]
	signupErr error
	user      *models.User
	userErr   error

	loginCalls   int
	userCalls    int
	requestedIDs []string
	onExpired    func(ctx context.Context)
}

func (f *fakeAPI) Login(ctx context.Context, in models.LoginRequest) (*client.Result[models.AuthResponse], error) {
	f.loginCalls++
	return f.loginRes, f.loginErr
}

func (f *fakeAPI) Signup(ctx context.Context, in models.SignupRequest) (*client.Result[models.AuthResponse], error) {
	return f.signupRes, f.signupErr
}

func (f *fakeAPI) GetUser(ctx context.Context, id string) (*models.User, error) {
	f.userCalls++
	f.requestedIDs = append(f.requestedIDs, id)
	return f.user, f.userErr
}

func (f *fakeAPI) OnSessionExpired(fn func(ctx context.Context)) {
	f.onExpired = fn
}

func authOK(user *models.User) *client.Result[models.AuthResponse] {
	return &client.Result[models.AuthResponse]{
		Message: "Login successful",
		Data: models.AuthResponse{
			TokenPair: models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
			Profile:   user,
		},
	}
}

func TestNewManager(t *testing.T) {
	api := &fakeAPI{}
	m := NewManager(tokenstore.NewMemoryStore(), api)

	assert.Equal(t, StateUninitialized, m.State())
	assert.True(t, m.Loading())
	assert.False(t, m.Authenticated())
	assert.NotNil(t, api.onExpired, "manager subscribes to session expiry")
}

func TestManager_LoginLogout(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	m := NewManager(store, &fakeAPI{loginRes: authOK(ada)})
	require.NoError(t, m.Hydrate(ctx))

	before := m.Current()
	assert.Equal(t, StateAnonymous, before.State)
	assert.False(t, before.Loading)

	msg, err := m.Login(ctx, models.LoginRequest{Email: ada.Email, Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Login successful", msg)

	s := m.Current()
	assert.True(t, s.Authenticated())
	assert.Equal(t, ada.ID, s.User.ID)
	assert.Equal(t, "access-1", s.AccessToken)
	assert.Equal(t, "refresh-1", s.RefreshToken)

	rec, err := store.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, ada.Email, rec.Email)

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, before, m.Current(), "logout returns to the pre-login anonymous state")
	assert.True(t, store.Empty(), "no residual token store data")
}

func TestManager_LoginFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		api     *fakeAPI
		wantErr error
	}{
		{
			name:    "api rejects",
			api:     &fakeAPI{loginErr: &client.APIError{Kind: client.KindHTTP, Status: 401, Message: "Bad credentials"}},
			wantErr: nil,
		},
		{
			name:    "missing profile",
			api:     &fakeAPI{loginRes: authOK(nil)},
			wantErr: ErrIncompleteAuth,
		},
		{
			name: "missing refresh token",
			api: &fakeAPI{loginRes: &client.Result[models.AuthResponse]{Data: models.AuthResponse{
				TokenPair: models.TokenPair{AccessToken: "a"},
				Profile:   ada,
			}}},
			wantErr: ErrIncompleteAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tokenstore.NewMemoryStore()
			m := NewManager(store, tt.api)
			require.NoError(t, m.Hydrate(ctx))

			_, err := m.Login(ctx, models.LoginRequest{Email: ada.Email, Password: "x"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			assert.Equal(t, StateAnonymous, m.State())
			assert.True(t, store.Empty())
			assert.Equal(t, 1, tt.api.loginCalls, "single attempt")
		})
	}
}

func TestManager_Signup(t *testing.T) {
	ctx := context.Background()
	res := authOK(ada)
	res.Message = "User registered successfully"
	m := NewManager(tokenstore.NewMemoryStore(), &fakeAPI{signupRes: res})

	msg, err := m.Signup(ctx, models.SignupRequest{Email: ada.Email})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", msg)
	assert.True(t, m.Authenticated())

	user, err := m.User()
	require.NoError(t, err)
	assert.Equal(t, ada.Username, user.Username)
}

func TestManager_Hydrate(t *testing.T) {
	ctx := context.Background()

	stored := func(t *testing.T) *tokenstore.MemoryStore {
		store := tokenstore.NewMemoryStore()
		require.NoError(t, store.Write(ctx, tokenstore.NewRecord(ada, models.TokenPair{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
		})))
		return store
	}

	t.Run("empty store is anonymous without network", func(t *testing.T) {
		api := &fakeAPI{}
		m := NewManager(tokenstore.NewMemoryStore(), api)
		require.NoError(t, m.Hydrate(ctx))

		assert.Equal(t, StateAnonymous, m.State())
		assert.False(t, m.Loading())
		assert.Zero(t, api.userCalls)
	})

	t.Run("stored session confirmed by profile fetch", func(t *testing.T) {
		fresh := *ada
		fresh.FirstName = "Augusta"
		api := &fakeAPI{user: &fresh}
		store := stored(t)

		m := NewManager(store, api)
		require.NoError(t, m.Hydrate(ctx))

		assert.Equal(t, StateAuthenticated, m.State())
		assert.False(t, m.Loading())
		assert.Equal(t, []string{ada.ID}, api.requestedIDs, "identity comes from the stored profile")
		assert.Equal(t, "Augusta", m.Current().User.FirstName)

		rec, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Augusta", rec.User.FirstName, "fresh profile persisted")
	})

	t.Run("profile fetch failure signs out", func(t *testing.T) {
		api := &fakeAPI{userErr: &client.APIError{Kind: client.KindHTTP, Status: http.StatusNotFound}}
		store := stored(t)

		m := NewManager(store, api)
		require.NoError(t, m.Hydrate(ctx))

		assert.Equal(t, StateAnonymous, m.State())
		assert.False(t, m.Loading())
		assert.True(t, store.Empty())
	})

	t.Run("profile for another user signs out", func(t *testing.T) {
		other := *ada
		other.ID = "someone-else"
		store := stored(t)

		m := NewManager(store, &fakeAPI{user: &other})
		require.NoError(t, m.Hydrate(ctx))

		assert.Equal(t, StateAnonymous, m.State())
		assert.True(t, store.Empty())
	})

	t.Run("corrupt store is anonymous", func(t *testing.T) {
		store, err := tokenstore.NewFileStore(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.Path(), []byte("{broken"), 0600))

		api := &fakeAPI{}
		m := NewManager(store, api)
		require.NoError(t, m.Hydrate(ctx))
		assert.Equal(t, StateAnonymous, m.State())
		assert.Zero(t, api.userCalls)
	})
}

func TestManager_Expire(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{loginRes: authOK(ada)}
	m := NewManager(tokenstore.NewMemoryStore(), api)

	_, err := m.Login(ctx, models.LoginRequest{Email: ada.Email, Password: "x"})
	require.NoError(t, err)
	require.True(t, m.Authenticated())

	api.onExpired(ctx)
	assert.False(t, m.Authenticated())
	assert.Equal(t, StateAnonymous, m.State())

	_, err = m.User()
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestManager_CurrentIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewManager(tokenstore.NewMemoryStore(), &fakeAPI{loginRes: authOK(ada)})
	_, err := m.Login(ctx, models.LoginRequest{Email: ada.Email, Password: "x"})
	require.NoError(t, err)

	s := m.Current()
	s.User.FirstName = "changed"
	assert.Equal(t, "Ada", m.Current().User.FirstName)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	m := NewManager(tokenstore.NewMemoryStore(), &fakeAPI{})
	ctx := WithManager(context.Background(), m)
	assert.Same(t, m, FromContext(ctx))
}

func TestManager_SetUser(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	m := NewManager(store, &fakeAPI{loginRes: authOK(ada)})

	updated := *ada
	updated.Username = "countess"
	require.ErrorIs(t, m.SetUser(ctx, &updated), ErrNotAuthenticated)

	_, err := m.Login(ctx, models.LoginRequest{Email: ada.Email, Password: "x"})
	require.NoError(t, err)

	require.NoError(t, m.SetUser(ctx, &updated))
	assert.Equal(t, "countess", m.Current().User.Username)

	rec, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "countess", rec.User.Username)
	assert.Equal(t, "access-1", rec.AccessToken, "tokens unchanged")

	other := *ada
	other.ID = "user-2"
	require.ErrorIs(t, m.SetUser(ctx, &other), ErrNotAuthenticated)
}

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("stored session without network", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		require.NoError(t, store.Write(ctx, tokenstore.NewRecord(ada, models.TokenPair{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
		})))
		api := &fakeAPI{}
		m := NewManager(store, api)

		require.NoError(t, m.Restore(ctx))
		assert.True(t, m.Authenticated())
		assert.False(t, m.Loading())
		assert.Equal(t, "access-1", m.Current().AccessToken)
		assert.Zero(t, api.userCalls)
	})

	t.Run("empty store", func(t *testing.T) {
		m := NewManager(tokenstore.NewMemoryStore(), &fakeAPI{})

		require.NoError(t, m.Restore(ctx))
		assert.Equal(t, StateAnonymous, m.State())
	})
}
