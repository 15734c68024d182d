// Package jobs holds long-running background workers started from main.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driftline/label-platform/internal/auth"
)

// StartTokenSweeper deletes expired refresh tokens on a fixed interval
// until ctx is cancelled. Expired rows are also evicted lazily on use,
// so the sweeper only has to catch sessions that were simply abandoned.
func StartTokenSweeper(ctx context.Context, tokens *auth.TokenService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := tokens.SweepExpired(sweepCtx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("token-sweeper: sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("token-sweeper: removed expired refresh tokens")
			}
		}
	}
}
