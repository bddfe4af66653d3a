package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateUser is returned when registering an already-taken username.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrAuthFailure is returned when a token does not resolve to a user.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrUserNotFound is returned when operating on an unregistered username.
	ErrUserNotFound = errors.New("user not found")
)

// User represents a registered account.
type User struct {
	ID        int64
	Username  string
	Token     string
	LoggedIn  bool
	LoginAt   time.Time // zero unless the user has logged in at least once
	CreatedAt time.Time
}

// Store handles user persistence. The relay core only ever talks to this
// interface; credential issuance lives in the auth service on top of it.
type Store interface {
	// CreateUser creates a user with its opaque credential token.
	// Returns ErrDuplicateUser if the username is taken.
	CreateUser(ctx context.Context, username, token string) (*User, error)

	// GetUserByToken resolves a credential token to its user.
	// Returns ErrAuthFailure if the token is unknown.
	GetUserByToken(ctx context.Context, token string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	// Returns ErrUserNotFound if absent.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SetLoginState flips the logged-in flag. Turning it on stamps the
	// login time with the current UTC instant.
	SetLoginState(ctx context.Context, username string, loggedIn bool) error

	// TouchLogin refreshes the login time, marking the user as active.
	TouchLogin(ctx context.Context, username string) error

	// ListOnline returns all users currently marked logged in,
	// login timestamps included.
	ListOnline(ctx context.Context) ([]*User, error)

	// Close closes the underlying database connection.
	Close() error
}
