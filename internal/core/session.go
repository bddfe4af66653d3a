package core

import (
	"time"

	"github.com/google/uuid"
)

// SessionState tracks the lifecycle of a pairwise chat session.
type SessionState int

const (
	// SessionPending is the transient state of a session being established.
	SessionPending SessionState = iota
	// SessionActive permits message relay between the two participants.
	SessionActive
	// SessionEnded is terminal; the session is removed from the table.
	SessionEnded
)

func (s SessionState) String() string {
	switch s {
	case SessionPending:
		return "pending"
	case SessionActive:
		return "active"
	case SessionEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Session is an exclusive two-party chat with a fixed expiry.
type Session struct {
	ID        string
	A, B      string
	ExpiresAt time.Time
	State     SessionState
}

// NewSession constructs a pending session between two participants.
func NewSession(a, b string, expiresAt time.Time) *Session {
	return &Session{
		ID:        uuid.New().String(),
		A:         a,
		B:         b,
		ExpiresAt: expiresAt,
		State:     SessionPending,
	}
}

// PartnerOf returns the other participant, or "" if username is not part
// of the session.
func (s *Session) PartnerOf(username string) string {
	switch username {
	case s.A:
		return s.B
	case s.B:
		return s.A
	default:
		return ""
	}
}
