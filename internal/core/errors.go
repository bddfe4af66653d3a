package core

import "errors"

var (
	// ErrAlreadyPaired is returned when a pairing attempt would violate
	// exclusivity: one of the two usernames already holds a live session.
	ErrAlreadyPaired = errors.New("already paired")
	// ErrSessionEnded is returned when relaying on a session that has
	// expired or no longer exists.
	ErrSessionEnded = errors.New("session ended")
	// ErrPartnerUnavailable is returned when the relay target has no live
	// connection. The sender is notified in-band.
	ErrPartnerUnavailable = errors.New("partner unavailable")
	// ErrBadPartner is returned when a user attempts to pair with itself
	// or with an empty partner name.
	ErrBadPartner = errors.New("bad partner")
)
