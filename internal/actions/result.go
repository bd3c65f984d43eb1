// Package actions implements the form actions: validate submitted fields, make one API
// call and map the outcome into a Result a UI can show.
package actions

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/reflections/internal/client"
	"github.com/wolfeidau/reflections/internal/telemetry"
)

const (
	sessionExpiredMessage = "Your session has expired. Please log in again."
	notSignedInMessage    = "You must be logged in to do that."
)

// Result is the outcome of an action. Error is empty on success.
type Result struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK reports whether the action succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

func success(ctx context.Context, action, message string, data any) Result {
	telemetry.GetMetrics().RecordActionResult(ctx, action, true)
	return Result{Message: message, Data: data}
}

func failure(ctx context.Context, action, message string) Result {
	telemetry.GetMetrics().RecordActionResult(ctx, action, false)
	return Result{Error: message}
}

// messages are the per-action texts used when the API gives no message of its own.
type messages struct {
	fallback    string
	unreachable string
}

// apiFailure maps a failed API call onto a user facing message.
func apiFailure(ctx context.Context, action string, err error, m messages) Result {
	log.Debug().Err(err).Str("action", action).Msg("action failed")

	switch {
	case errors.Is(err, client.ErrSessionExpired):
		return failure(ctx, action, sessionExpiredMessage)
	case errors.Is(err, client.ErrUnreachable):
		return failure(ctx, action, m.unreachable)
	}

	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Kind == client.KindHTTP {
		return failure(ctx, action, apiErr.MessageOr(m.fallback))
	}

	return failure(ctx, action, m.fallback)
}
