// Package web exposes the form actions to browsers as a small JSON backend. Each
// request binds its own token store, API client and session manager from the session
// cookie, so no state is shared between users.
package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/reflections/internal/ai"
	"github.com/wolfeidau/reflections/internal/client"
	rhttp "github.com/wolfeidau/reflections/internal/http"
	"github.com/wolfeidau/reflections/internal/logger"
	"github.com/wolfeidau/reflections/internal/tokenstore"
)

// ExpiredRedirect is where browsers are sent after a session could not be refreshed.
const ExpiredRedirect = "/login?error_code=expired"

// Config configures the web server.
type Config struct {
	// Client configures the per-request API client. The read cache is always
	// disabled so responses are never shared between users.
	Client client.Config

	// Binder binds the session store to each request.
	Binder tokenstore.Binder

	// AI backs idea generation and rephrasing, optional.
	AI ai.Service

	// Transport is the base round tripper for API calls, defaults to http.DefaultTransport.
	Transport http.RoundTripper

	Logger zerolog.Logger
}

// Server routes action requests.
type Server struct {
	cfg    Config
	engine *gin.Engine
}

// New creates the server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Binder == nil {
		return nil, errors.New("a session binder is required")
	}
	cfg.Client.Cache = false

	s := &Server{cfg: cfg, engine: gin.New()}
	s.engine.Use(gin.Recovery(), logger.RequestLogger(cfg.Logger))
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", healthz)

	api := s.engine.Group("/api", s.bindSession)
	api.GET("/session", s.currentSession)

	actions := s.engine.Group("/actions", s.bindSession)
	actions.POST("/signup", s.signup)
	actions.POST("/login", s.login)
	actions.POST("/logout", s.logout)
	actions.POST("/profile", s.updateProfile)

	actions.GET("/posts", s.listPosts)
	actions.GET("/posts/:id", s.getPost)
	actions.POST("/posts", s.createPost)
	actions.PUT("/posts/:id", s.updatePost)
	actions.DELETE("/posts/:id", s.deletePost)

	actions.POST("/ideas", s.generateIdeas)
	actions.POST("/rephrase", s.rephrase)
}

// Handler returns the server wrapped with request id and client ip middleware.
func (s *Server) Handler() http.Handler {
	return rhttp.Chain(s.engine,
		rhttp.RequestIDMiddleware(),
		rhttp.ClientIPMiddleware(),
	)
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
