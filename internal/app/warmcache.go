package app

import (
	"context"
	"os"
	"time"
)

// StartWarmCache prefetches the overview in the background so the first
// request is served from cache. Disabled with FUNDVIEW_WARM_CACHE=off.
func (a *App) StartWarmCache() {
	if os.Getenv("FUNDVIEW_WARM_CACHE") == "off" {
		a.Logger.Info().Msg("Warm cache: disabled via FUNDVIEW_WARM_CACHE=off")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.warmCancel = cancel

	go func() {
		start := time.Now()
		a.Logger.Info().Msg("Warm cache: starting")
		if err := a.Resolver.Warm(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Warm cache: overview fetch failed")
			return
		}
		a.Logger.Info().
			Dur("elapsed", time.Since(start)).
			Msg("Warm cache: complete")
	}()
}
