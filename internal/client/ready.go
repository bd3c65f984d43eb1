package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// WaitReady polls the actuator until the API answers or maxElapsed passes. The hosted
// API sleeps when idle and can take a while to start. It returns the version banner.
func (c *Client) WaitReady(ctx context.Context, maxElapsed time.Duration) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, func() (string, error) {
		v, err := c.Version(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(ctx.Err())
			}
			log.Debug().Err(err).Msg("api not ready")
			return "", err
		}
		return v, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
}
