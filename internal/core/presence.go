package core

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/vovakirdan/pairchat-server/internal/identity"
)

// Publisher pushes snapshots of the online user set to subscribers.
type Publisher struct {
	identity identity.Store
	interval time.Duration
	clock    clock.Clock
	log      *zerolog.Logger
}

// NewPublisher constructs a presence publisher ticking at interval.
func NewPublisher(store identity.Store, interval time.Duration, clk clock.Clock, logger *zerolog.Logger) *Publisher {
	return &Publisher{
		identity: store,
		interval: interval,
		clock:    clk,
		log:      logger,
	}
}

// Snapshot returns the usernames currently marked logged in.
func (p *Publisher) Snapshot(ctx context.Context) ([]string, error) {
	users, err := p.identity.ListOnline(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names, nil
}

// Serve pushes one snapshot immediately and then one per tick, until push
// fails (subscriber gone) or the context is cancelled. A store error skips
// the tick; the subscriber keeps its loop.
func (p *Publisher) Serve(ctx context.Context, push func(context.Context, []string) error) error {
	send := func() error {
		names, err := p.Snapshot(ctx)
		if err != nil {
			p.log.Warn().Err(err).Msg("presence snapshot failed")
			return nil
		}
		return push(ctx, names)
	}

	if err := send(); err != nil {
		return err
	}

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := send(); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
