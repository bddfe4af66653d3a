package proto

// The chat feed is plain text: an inbound frame carries raw message text,
// an outbound frame is either a relayed message or one of these notices.

// RelayFrame formats a relayed message, prefixed with the sender's identity.
func RelayFrame(sender, text string) string {
	return sender + ": " + text
}

// ConnectedNotice tells a participant the pairing was established.
func ConnectedNotice(partner string) string {
	return "Connected with " + partner
}

// DisconnectedNotice tells a participant the partner dropped the connection.
func DisconnectedNotice(partner string) string {
	return partner + " has disconnected."
}

// NotOnlineNotice tells a sender the relay target has no live connection.
func NotOnlineNotice(partner string) string {
	return partner + " is not online."
}

const (
	// SessionEndedNotice is sent to both participants when a session expires.
	SessionEndedNotice = "Chat session ended."
	// AlreadyPairedNotice is sent before closing a pairing attempt that
	// violates exclusivity.
	AlreadyPairedNotice = "One of you is already in a chat. Disconnect and try again."
)

// PresenceSnapshot is the payload pushed on the presence feed: the
// usernames currently logged in, one snapshot per publish tick.
type PresenceSnapshot []string
