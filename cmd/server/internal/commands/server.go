package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/reflections/internal/ai"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/logger"
	"github.com/wolfeidau/reflections/internal/telemetry"
	"github.com/wolfeidau/reflections/internal/tokenstore"
	"github.com/wolfeidau/reflections/internal/web"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"REFLECTIONS_LISTEN"`
	Cert   string `help:"path to TLS cert file, serves plain HTTP when empty" default:"" env:"REFLECTIONS_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"REFLECTIONS_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for action requests" default:"http://localhost:3000" env:"REFLECTIONS_CORS_ORIGINS"`

	// Remote API
	APIURL       string        `name:"api-url" help:"Reflections API URL" default:"${api_url}" env:"REFLECTIONS_API_URL"`
	Timeout      time.Duration `help:"API request timeout" default:"30s" env:"REFLECTIONS_TIMEOUT"`
	ReadyTimeout time.Duration `help:"how long to wait for the API on start up, 0 skips the check" default:"2m" env:"REFLECTIONS_READY_TIMEOUT"`

	// Session configuration
	SessionStore    string        `help:"where sessions are kept (cookie or redis)" default:"cookie" enum:"cookie,redis" env:"REFLECTIONS_SESSION_STORE"`
	SessionSecret   string        `help:"secret used to seal session cookies (at least 32 bytes)" env:"REFLECTIONS_SESSION_SECRET"`
	SessionTTL      time.Duration `help:"session lifetime" default:"168h" env:"REFLECTIONS_SESSION_TTL"`
	InsecureCookies bool          `help:"issue cookies without the Secure attribute (development only)" env:"REFLECTIONS_INSECURE_COOKIES"`
	Redis           RedisFlags    `embed:"" prefix:"redis-"`

	// Generative text
	GeminiAPIKey string `name:"gemini-api-key" help:"Gemini API key" env:"GEMINI_API_KEY"`
	Model        string `help:"Gemini model" default:"${model}" env:"REFLECTIONS_MODEL"`

	// Telemetry
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"REFLECTIONS_TRACING"`
	SampleRatio float64 `help:"fraction of traces sampled" default:"1" env:"REFLECTIONS_TRACE_SAMPLE_RATIO"`
}

type RedisFlags struct {
	Addr     string `help:"redis address" default:"localhost:6379" env:"REFLECTIONS_REDIS_ADDR"`
	Password string `help:"redis password" env:"REFLECTIONS_REDIS_PASSWORD"`
	DB       int    `help:"redis database" default:"0" env:"REFLECTIONS_REDIS_DB"`
}

func (c *ServerCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Dev)

	log.Info().Str("version", globals.Version).Bool("dev", globals.Dev).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "reflections-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
	}

	binder, closeBinder, err := c.binder(ctx, log)
	if err != nil {
		return err
	}
	defer closeBinder()

	clientCfg := client.DefaultConfig()
	clientCfg.BaseURL = c.APIURL
	clientCfg.Timeout = c.Timeout
	clientCfg.UserAgent = "reflections-server/" + globals.Version

	if c.ReadyTimeout > 0 {
		upstream, err := client.New(clientCfg, tokenstore.NewMemoryStore())
		if err != nil {
			return err
		}
		version, err := upstream.WaitReady(ctx, c.ReadyTimeout)
		if err != nil {
			return fmt.Errorf("api at %s is not ready: %w", c.APIURL, err)
		}
		log.Info().Str("api_version", version).Str("api_url", c.APIURL).Msg("API is ready")
	}

	var gen ai.Service
	if c.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, ai.GeminiConfig{APIKey: c.GeminiAPIKey, Model: c.Model})
		if err != nil {
			return err
		}
		gen = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY is not set, idea generation and rephrasing are disabled")
	}

	handler, err := c.handler(web.Config{
		Client: clientCfg,
		Binder: binder,
		AI:     gen,
		Logger: log,
	})
	if err != nil {
		return err
	}

	return c.serve(ctx, log, configureHTTPServer(c.Listen, handler))
}

// handler builds the web server wrapped with CORS, cross-origin protection and compression.
func (c *ServerCmd) handler(cfg web.Config) (http.Handler, error) {
	srv, err := web.New(cfg)
	if err != nil {
		return nil, err
	}

	protection := csrf.New()
	for _, origin := range c.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid CORS origin %q: %w", origin, err)
		}
	}

	return withCORS(c.CORSOrigins, protection.Handler(gzhttp.GzipHandler(srv.Handler()))), nil
}

// binder creates the session store binder and a function releasing its resources.
func (c *ServerCmd) binder(ctx context.Context, log zerolog.Logger) (tokenstore.Binder, func(), error) {
	opts := tokenstore.CookieOptions{
		Secure: !c.InsecureCookies,
		MaxAge: c.SessionTTL,
	}

	switch c.SessionStore {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Redis.Addr, err)
		}
		log.Info().Str("addr", c.Redis.Addr).Msg("Using redis session store")
		return tokenstore.NewRedisBinder(rdb, opts), func() { _ = rdb.Close() }, nil

	default:
		if c.SessionSecret == "" {
			return nil, nil, errors.New("session secret is required for cookie sessions (--session-secret or REFLECTIONS_SESSION_SECRET)")
		}
		b, err := tokenstore.NewCookieBinder([]byte(c.SessionSecret), opts)
		if err != nil {
			return nil, nil, err
		}
		return b, func() {}, nil
	}
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func (c *ServerCmd) serve(ctx context.Context, log zerolog.Logger, srv *http.Server) error {
	tls := c.Cert != "" || c.Key != ""
	if tls {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Bool("tls", tls).Str("session_store", c.SessionStore).Msg("Starting HTTP server")
		if tls {
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withCORS lets the configured browser origins call the actions with credentials.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true, // Required for cookie-based sessions
	})
	return middleware.Handler(h)
}
