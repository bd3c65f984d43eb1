package actions

import (
	"context"

	"github.com/wolfeidau/reflections/internal/ai"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/models"
	"github.com/wolfeidau/reflections/internal/session"
)

// BlogAPI is the part of the API client used by the post and profile actions.
type BlogAPI interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	PostsByAuthor(ctx context.Context, authorID string) ([]models.Post, error)
	CreatePost(ctx context.Context, in models.PostInput) (*client.Result[models.Post], error)
	UpdatePost(ctx context.Context, id string, in models.PostInput) (*client.Result[models.Post], error)
	DeletePost(ctx context.Context, id string) (string, error)
	UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*client.Result[models.User], error)
}

// Actions runs form actions for one session.
type Actions struct {
	api      BlogAPI
	sessions *session.Manager
	gen      ai.Service
}

// New creates the actions for the session held by sessions. gen may be nil when no
// generative backend is configured.
func New(api BlogAPI, sessions *session.Manager, gen ai.Service) *Actions {
	return &Actions{api: api, sessions: sessions, gen: gen}
}

// signedIn returns the current user when the session holds a token.
func (a *Actions) signedIn() (*models.User, bool) {
	if a.sessions == nil {
		return nil, false
	}
	s := a.sessions.Current()
	if !s.Authenticated() || s.AccessToken == "" {
		return nil, false
	}
	return s.User, true
}
