package core

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/vovakirdan/pairchat-server/internal/identity"
)

// Reaper evicts users whose login has been idle past the inactivity
// window: marks them logged out, ends their session, and closes their
// connection. Best-effort; a failing user is logged and skipped.
type Reaper struct {
	identity identity.Store
	registry *Registry
	manager  *Manager
	window   time.Duration
	interval time.Duration
	clock    clock.Clock
	log      *zerolog.Logger
}

// NewReaper constructs an inactivity reaper.
func NewReaper(store identity.Store, registry *Registry, manager *Manager, window, interval time.Duration, clk clock.Clock, logger *zerolog.Logger) *Reaper {
	return &Reaper{
		identity: store,
		registry: registry,
		manager:  manager,
		window:   window,
		interval: interval,
		clock:    clk,
		log:      logger,
	}
}

// Run sweeps on a fixed tick until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep evicts every online user whose last activity is older than the
// inactivity window.
func (r *Reaper) Sweep(ctx context.Context) {
	users, err := r.identity.ListOnline(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("reaper failed to list online users")
		return
	}

	now := r.clock.Now()
	for _, u := range users {
		if now.Sub(u.LoginAt) <= r.window {
			continue
		}

		if err := r.identity.SetLoginState(ctx, u.Username, false); err != nil {
			r.log.Warn().Err(err).Str("username", u.Username).Msg("reaper failed to log out user")
			continue
		}

		r.manager.Disconnect(u.Username)

		if peer := r.registry.Lookup(u.Username); peer != nil {
			peer.Close(CloseNormal, "logged out due to inactivity")
			r.registry.Unregister(peer)
		}

		r.log.Info().
			Str("username", u.Username).
			Time("login_at", u.LoginAt).
			Msg("reaped inactive user")
	}
}
