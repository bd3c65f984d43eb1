package logger

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	rhttp "github.com/wolfeidau/reflections/internal/http"
)

// Setup builds the process logger and installs it as the global zerolog logger.
// dev switches to console output at debug level.
func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = logger

	return logger
}

// RequestLogger is gin middleware that attaches a request scoped logger to the request
// context and logs each completed request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		ctx := c.Request.Context()

		reqLogger := logger.With().
			Str("request_id", rhttp.RequestIDFromContext(ctx)).
			Str("client_ip", rhttp.ClientIPFromContext(ctx)).
			Logger()
		c.Request = c.Request.WithContext(reqLogger.WithContext(ctx))

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		evt := reqLogger.Info()
		switch status := c.Writer.Status(); {
		case status >= 500:
			evt = reqLogger.Error()
		case status >= 400:
			evt = reqLogger.Warn()
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}

		evt.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Int("size", c.Writer.Size()).
			Dur("duration", time.Since(started)).
			Msg("http request")
	}
}
