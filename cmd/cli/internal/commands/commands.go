package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/reflections/internal/actions"
	"github.com/wolfeidau/reflections/internal/ai"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/session"
	"github.com/wolfeidau/reflections/internal/tokenstore"
)

// SessionExpiredNotice is printed when the stored session could not be refreshed.
const SessionExpiredNotice = "Session Expired: Please log in again."

// Globals are the flags shared by every command.
type Globals struct {
	Debug   bool
	Version string

	APIURL    string
	Timeout   time.Duration
	ConfigDir string
	CacheDir  string
	NoCache   bool

	GeminiAPIKey string
	Model        string

	// Out and Err default to stdout and stderr.
	Out io.Writer
	Err io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) stderr() io.Writer {
	if g.Err == nil {
		return os.Stderr
	}
	return g.Err
}

// app is the session and actions for one command invocation.
type app struct {
	client   *client.Client
	sessions *session.Manager
	actions  *actions.Actions
	out      io.Writer
}

// open restores the stored session. With confirm the session is checked against the
// API, otherwise it is loaded from disk only.
func (g *Globals) open(ctx context.Context, confirm bool) (*app, error) {
	store, err := tokenstore.NewFileStore(g.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	cfg := client.DefaultConfig()
	if g.APIURL != "" {
		cfg.BaseURL = g.APIURL
	}
	if g.Timeout > 0 {
		cfg.Timeout = g.Timeout
	}
	cfg.UserAgent = "reflections-cli/" + g.Version
	if !g.NoCache {
		cfg.Cache = true
		cfg.CacheDir = g.cacheDir()
	}

	cl, err := client.New(cfg, store)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(store, cl)
	cl.OnSessionExpired(func(ctx context.Context) {
		sessions.Expire(ctx)
		fmt.Fprintln(g.stderr(), SessionExpiredNotice)
	})

	if confirm {
		err = sessions.Hydrate(ctx)
	} else {
		err = sessions.Restore(ctx)
	}
	if err != nil {
		return nil, err
	}

	return &app{
		client:   cl,
		sessions: sessions,
		actions:  actions.New(cl, sessions, g.generator(ctx)),
		out:      g.stdout(),
	}, nil
}

// cacheDir places the read cache next to the session file unless configured.
func (g *Globals) cacheDir() string {
	if g.CacheDir != "" {
		return g.CacheDir
	}
	if g.ConfigDir != "" {
		return filepath.Join(g.ConfigDir, "cache")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".reflections", "cache")
}

// generator returns the Gemini service, or nil when no API key is configured.
func (g *Globals) generator(ctx context.Context) ai.Service {
	if g.GeminiAPIKey == "" {
		return nil
	}
	gen, err := ai.NewGemini(ctx, ai.GeminiConfig{APIKey: g.GeminiAPIKey, Model: g.Model})
	if err != nil {
		log.Warn().Err(err).Msg("generative text is unavailable")
		return nil
	}
	return gen
}

// report prints a successful result's message or turns a failed one into an error.
func (a *app) report(res actions.Result) error {
	if !res.OK() {
		return errors.New(res.Error)
	}
	if res.Message != "" {
		fmt.Fprintln(a.out, res.Message)
	}
	return nil
}
