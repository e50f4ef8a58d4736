package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically deletes expired sessions so stores don't rely on
// lazy eviction alone.
type Sweeper struct {
	Store    Store
	Interval time.Duration
	Log      zerolog.Logger
}

// Run sweeps on the configured interval until ctx is cancelled. Intended
// to run on its own goroutine from main.
func (w Sweeper) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.Store.SweepExpired(ctx)
			if err != nil {
				w.Log.Error().Err(err).Msg("session sweep failed")
				continue
			}
			if n > 0 {
				w.Log.Info().Int("swept", n).Msg("swept expired sessions")
			}
		}
	}
}
