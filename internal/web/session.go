package web

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/reflections/internal/actions"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/session"
)

const requestSessionKey = "reflections_session"

// requestSession is everything bound to one browser request.
type requestSession struct {
	manager *session.Manager
	actions *actions.Actions
	expired atomic.Bool
}

// bindSession restores the caller's session from its cookie and makes the actions for
// it available to the handler.
func (s *Server) bindSession(c *gin.Context) {
	ctx := c.Request.Context()
	store := s.cfg.Binder.Bind(c.Writer, c.Request)

	var opts []client.Option
	if s.cfg.Transport != nil {
		opts = append(opts, client.WithTransport(s.cfg.Transport))
	}
	cl, err := client.New(s.cfg.Client, store, opts...)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to create api client")
		c.AbortWithStatusJSON(http.StatusInternalServerError, actions.Result{Error: "Internal server error."})
		return
	}

	rs := &requestSession{manager: session.NewManager(store, cl)}
	cl.OnSessionExpired(func(ctx context.Context) {
		rs.manager.Expire(ctx)
		rs.expired.Store(true)
	})

	if err := rs.manager.Restore(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to restore session")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, actions.Result{Error: "Session storage is unavailable. Please try again later."})
		return
	}

	rs.actions = actions.New(cl, rs.manager, s.cfg.AI)

	c.Set(requestSessionKey, rs)
	c.Request = c.Request.WithContext(session.WithManager(ctx, rs.manager))
	c.Next()
}

func sessionFrom(c *gin.Context) *requestSession {
	return c.MustGet(requestSessionKey).(*requestSession)
}

// respond writes an action result. A session that expired while the action ran is
// reported as 401 with the login redirect.
func respond(c *gin.Context, res actions.Result) {
	if sessionFrom(c).expired.Load() {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":    "Your session has expired. Please log in again.",
			"redirect": ExpiredRedirect,
		})
		return
	}

	if !res.OK() {
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// respondRead writes the payload of a read action unless the session expired.
func respondRead(c *gin.Context, status int, body any) {
	if sessionFrom(c).expired.Load() {
		respond(c, actions.Result{})
		return
	}
	c.JSON(status, body)
}
