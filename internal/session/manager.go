// Package session owns the in-memory authentication state of one client: the current
// user, the token pair and whether hydration from the token store is still running.
// The Manager is the only writer of that state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/models"
	"github.com/wolfeidau/reflections/internal/telemetry"
	"github.com/wolfeidau/reflections/internal/tokenstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a signed in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrIncompleteAuth is returned when the API accepted credentials but did not return
	// a profile and both tokens.
	ErrIncompleteAuth = errors.New("authentication response missing profile or tokens")
)

// State is the lifecycle state of a session.
type State int

const (
	StateUninitialized State = iota
	StateHydrating
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Session is a snapshot of the authentication state. It is either fully authenticated
// (user and both tokens) or fully anonymous.
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Loading      bool
	State        State
}

// Authenticated reports whether the snapshot holds a signed in user.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated
}

// API is the part of the blog API the manager needs.
type API interface {
	Login(ctx context.Context, in models.LoginRequest) (*client.Result[models.AuthResponse], error)
	Signup(ctx context.Context, in models.SignupRequest) (*client.Result[models.AuthResponse], error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// expiryNotifier is implemented by *client.Client.
type expiryNotifier interface {
	OnSessionExpired(fn func(ctx context.Context))
}

// Manager holds the session for one client and keeps it in step with the token store.
type Manager struct {
	store tokenstore.Store
	api   API

	mu      sync.RWMutex
	session Session
}

// NewManager creates a manager in the Uninitialized state. Call Hydrate to load any
// stored session. When api can report expired sessions the manager subscribes to them.
func NewManager(store tokenstore.Store, api API) *Manager {
	m := &Manager{
		store:   store,
		api:     api,
		session: Session{State: StateUninitialized, Loading: true},
	}
	if n, ok := api.(expiryNotifier); ok {
		n.OnSessionExpired(m.Expire)
	}
	return m
}

// Hydrate loads the stored session and confirms it by fetching the stored user's
// profile. Any failure signs the session out and leaves the manager Anonymous; only
// token store I/O errors are returned.
func (m *Manager) Hydrate(ctx context.Context) error {
	m.transition(ctx, Session{State: StateHydrating, Loading: true})

	rec, err := m.store.Read(ctx)
	if err != nil {
		m.signOut(ctx, "store read failed")
		return fmt.Errorf("failed to read session: %w", err)
	}
	if rec == nil {
		m.transition(ctx, Session{State: StateAnonymous})
		return nil
	}

	user, err := m.api.GetUser(ctx, rec.User.ID)
	if err != nil {
		log.Debug().Err(err).Str("user_id", rec.User.ID).Msg("profile fetch failed during hydration")
		m.signOut(ctx, "profile fetch failed")
		return nil
	}
	if !user.Valid() || user.ID != rec.User.ID {
		m.signOut(ctx, "profile mismatch")
		return nil
	}

	// tokens may have been refreshed by the profile fetch
	current, err := m.store.Read(ctx)
	if err != nil {
		m.signOut(ctx, "store read failed")
		return fmt.Errorf("failed to read session: %w", err)
	}
	if current == nil {
		m.signOut(ctx, "session cleared during hydration")
		return nil
	}

	current = current.WithUser(user)
	if err := m.store.Write(ctx, current); err != nil {
		m.signOut(ctx, "store write failed")
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.transition(ctx, sessionFromRecord(current))
	log.Debug().Str("user_id", user.ID).Msg("session hydrated")
	return nil
}

// Restore loads the stored session without confirming it with the API. The web server
// uses it per request; a stale token is recovered by the client's refresh on first use.
func (m *Manager) Restore(ctx context.Context) error {
	rec, err := m.store.Read(ctx)
	if err != nil {
		m.transition(ctx, Session{State: StateAnonymous})
		return fmt.Errorf("failed to read session: %w", err)
	}
	if rec == nil {
		m.transition(ctx, Session{State: StateAnonymous})
		return nil
	}
	m.transition(ctx, sessionFromRecord(rec))
	return nil
}

// Login authenticates with the API and persists the returned session. On failure the
// stored session and state are left untouched. It returns the server message.
func (m *Manager) Login(ctx context.Context, in models.LoginRequest) (string, error) {
	res, err := m.api.Login(ctx, in)
	if err != nil {
		return "", err
	}
	return res.Message, m.establish(ctx, res.Data)
}

// Signup registers an account and signs it in. It returns the server message.
func (m *Manager) Signup(ctx context.Context, in models.SignupRequest) (string, error) {
	res, err := m.api.Signup(ctx, in)
	if err != nil {
		return "", err
	}
	return res.Message, m.establish(ctx, res.Data)
}

func (m *Manager) establish(ctx context.Context, auth models.AuthResponse) error {
	if !auth.Profile.Valid() || !auth.Complete() {
		return ErrIncompleteAuth
	}

	rec := tokenstore.NewRecord(auth.Profile, auth.TokenPair)
	if err := m.store.Write(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.transition(ctx, sessionFromRecord(rec))
	log.Info().
		Str("user_id", auth.Profile.ID).
		Str("fingerprint", tokenstore.Fingerprint(auth.AccessToken)).
		Msg("signed in")
	return nil
}

// SetUser replaces the signed in user's profile, for example after a profile update.
func (m *Manager) SetUser(ctx context.Context, user *models.User) error {
	if !user.Valid() {
		return ErrIncompleteAuth
	}

	rec, err := m.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if rec == nil || rec.User.ID != user.ID {
		return ErrNotAuthenticated
	}

	rec = rec.WithUser(user)
	if err := m.store.Write(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.transition(ctx, sessionFromRecord(rec))
	return nil
}

// Logout clears the token store and the in-memory session.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.Clear(ctx)
	m.transition(ctx, Session{State: StateAnonymous})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Expire drops the in-memory session after the client could not refresh it. The client
// has already cleared the token store.
func (m *Manager) Expire(ctx context.Context) {
	m.mu.RLock()
	was := m.session.State
	m.mu.RUnlock()

	m.transition(ctx, Session{State: StateAnonymous})
	if was == StateAuthenticated {
		log.Info().Msg("Session Expired. Please log in again.")
	}
}

// Current returns a copy of the session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// User returns the signed in user or ErrNotAuthenticated.
func (m *Manager) User() (*models.User, error) {
	s := m.Current()
	if !s.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	return s.User, nil
}

// Authenticated reports whether a user is signed in.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.State == StateAuthenticated
}

// Loading is true until hydration has finished.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Loading
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.State
}

// signOut runs the logout path on a failed hydration.
func (m *Manager) signOut(ctx context.Context, reason string) {
	log.Debug().Str("reason", reason).Msg("signing out stored session")
	if err := m.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to clear stored session")
	}
}

func (m *Manager) transition(ctx context.Context, next Session) {
	m.mu.Lock()
	from := m.session.State
	m.session = next
	m.mu.Unlock()

	if from != next.State {
		telemetry.GetMetrics().SessionTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", from.String()),
			attribute.String("to", next.State.String()),
		))
	}
}

func sessionFromRecord(rec *tokenstore.Record) Session {
	return Session{
		User:         rec.User,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Expiry:       rec.Expiry,
		State:        StateAuthenticated,
	}
}
