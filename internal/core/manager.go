package core

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/vovakirdan/pairchat-server/internal/identity"
	"github.com/vovakirdan/pairchat-server/internal/proto"
)

// sweepInterval is how often the manager scans for sessions past expiry.
// Relay also checks expiry on every call, so the sweep only matters for
// sessions that go quiet.
const sweepInterval = 5 * time.Second

type endReason int

const (
	endExpired endReason = iota
	endDisconnect
)

// Manager owns the pairwise session table: establishment, exclusivity,
// relay, expiry, and cleanup on disconnect.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session // one entry per participant, same Session under both keys

	registry *Registry
	identity identity.Store
	duration time.Duration
	clock    clock.Clock
	log      *zerolog.Logger
}

// NewManager constructs a session manager. duration bounds the lifetime
// of every session it opens.
func NewManager(registry *Registry, store identity.Store, duration time.Duration, clk clock.Clock, logger *zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		registry: registry,
		identity: store,
		duration: duration,
		clock:    clk,
		log:      logger,
	}
}

// Open establishes an exclusive session between username and partner, or
// joins the one the partner already opened for this same pair. Fails with
// ErrAlreadyPaired if either side holds a live session with anyone else;
// the exclusivity check and the session insert are atomic. Each caller
// receives a connection-established notice, and on creation the partner is
// notified too if already connected.
func (m *Manager) Open(username, partner string) (*Session, error) {
	if partner == "" || partner == username {
		return nil, ErrBadPartner
	}

	m.mu.Lock()
	now := m.clock.Now()

	if s := m.sessions[username]; s != nil && !m.expireLocked(s, now) {
		if s.PartnerOf(username) != partner {
			m.mu.Unlock()
			return nil, ErrAlreadyPaired
		}
		// Same unordered pair: this is the partner's side of an already
		// opened session, not a duplicate.
		m.mu.Unlock()

		if p := m.registry.Lookup(username); p != nil {
			p.Send(proto.ConnectedNotice(partner))
		}
		m.log.Info().
			Str("session_id", s.ID).
			Str("username", username).
			Str("partner", partner).
			Msg("session joined")
		return s, nil
	}
	if s := m.sessions[partner]; s != nil && !m.expireLocked(s, now) {
		m.mu.Unlock()
		return nil, ErrAlreadyPaired
	}

	sess := NewSession(username, partner, now.Add(m.duration))
	sess.State = SessionActive
	m.sessions[username] = sess
	m.sessions[partner] = sess
	m.mu.Unlock()

	if p := m.registry.Lookup(username); p != nil {
		p.Send(proto.ConnectedNotice(partner))
	}
	if p := m.registry.Lookup(partner); p != nil {
		p.Send(proto.ConnectedNotice(username))
	}

	m.log.Info().
		Str("session_id", sess.ID).
		Str("username", username).
		Str("partner", partner).
		Time("expires_at", sess.ExpiresAt).
		Msg("session opened")
	return sess, nil
}

// Relay forwards a text frame from sender to its session partner, prefixed
// with the sender's identity. Expiry takes priority: a relay at or past
// expiresAt ends the session first and is rejected. An unreachable partner
// is reported to the sender in-band, never silently dropped.
func (m *Manager) Relay(ctx context.Context, sender, text string) error {
	m.mu.Lock()
	sess := m.sessions[sender]
	if sess == nil {
		m.mu.Unlock()
		return ErrSessionEnded
	}
	if m.expireLocked(sess, m.clock.Now()) {
		m.mu.Unlock()
		return ErrSessionEnded
	}
	partner := sess.PartnerOf(sender)
	m.mu.Unlock()

	peer := m.registry.Lookup(partner)
	if peer == nil || peer.Closed() {
		if sp := m.registry.Lookup(sender); sp != nil {
			sp.Send(proto.NotOnlineNotice(partner))
		}
		return ErrPartnerUnavailable
	}

	if !peer.Send(proto.RelayFrame(sender, text)) {
		// Queue full or peer closed mid-relay; dropped, not retried.
		m.log.Warn().
			Str("sender", sender).
			Str("partner", partner).
			Msg("dropped frame for stalled peer")
		return nil
	}

	// Relay counts as activity; keeps the sender clear of the reaper.
	if err := m.identity.TouchLogin(ctx, sender); err != nil {
		m.log.Warn().Err(err).Str("username", sender).Msg("failed to refresh login activity")
	}
	return nil
}

// Disconnect ends the session that username participates in, if any.
// The partner receives a disconnect notice and its connection is closed;
// both table entries are removed. No-op for users without a session.
func (m *Manager) Disconnect(username string) {
	m.mu.Lock()
	sess := m.sessions[username]
	if sess == nil {
		m.mu.Unlock()
		return
	}
	m.endLocked(sess, endDisconnect, username)
	m.mu.Unlock()
}

// Leave is Disconnect scoped to a known session: it ends sess only if it
// is still the one username participates in. A connection displaced by a
// newer login calls this on cleanup without ending its successor's session.
func (m *Manager) Leave(sess *Session, username string) {
	m.mu.Lock()
	if m.sessions[username] == sess {
		m.endLocked(sess, endDisconnect, username)
	}
	m.mu.Unlock()
}

// Run periodically ends sessions past their expiry, so time-outs fire even
// when no further frames arrive. Terminates on context cancellation.
func (m *Manager) Run(ctx context.Context) {
	ticker := m.clock.Ticker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweepExpired()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) sweepExpired() {
	m.mu.Lock()
	now := m.clock.Now()
	expired := make(map[string]*Session)
	for _, sess := range m.sessions {
		if sess.State == SessionActive && !now.Before(sess.ExpiresAt) {
			expired[sess.ID] = sess
		}
	}
	for _, sess := range expired {
		m.endLocked(sess, endExpired, "")
	}
	m.mu.Unlock()
}

// expireLocked ends the session if now is at or past its expiry. Reports
// whether the session is no longer usable. Caller must hold m.mu.
func (m *Manager) expireLocked(sess *Session, now time.Time) bool {
	if sess.State == SessionEnded {
		return true
	}
	if now.Before(sess.ExpiresAt) {
		return false
	}
	m.endLocked(sess, endExpired, "")
	return true
}

// endLocked transitions the session to Ended exactly once, removes both
// table entries, and delivers the reason-specific notice-and-close side
// effects. Caller must hold m.mu; peer sends are non-blocking.
func (m *Manager) endLocked(sess *Session, reason endReason, leaver string) {
	if sess.State == SessionEnded {
		return
	}
	sess.State = SessionEnded

	for _, name := range []string{sess.A, sess.B} {
		if m.sessions[name] == sess {
			delete(m.sessions, name)
		}
	}

	switch reason {
	case endExpired:
		for _, name := range []string{sess.A, sess.B} {
			if p := m.registry.Lookup(name); p != nil {
				p.Send(proto.SessionEndedNotice)
				p.Close(CloseNormal, "chat session expired")
			}
		}
		m.log.Info().Str("session_id", sess.ID).Msg("session expired")
	case endDisconnect:
		partner := sess.PartnerOf(leaver)
		if p := m.registry.Lookup(partner); p != nil {
			p.Send(proto.DisconnectedNotice(leaver))
			p.Close(CloseNormal, "partner disconnected")
		}
		m.log.Info().
			Str("session_id", sess.ID).
			Str("username", leaver).
			Msg("session ended by disconnect")
	}
}
