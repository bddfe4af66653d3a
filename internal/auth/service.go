package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/pairchat-server/internal/identity"
)

var (
	// ErrInvalidToken is returned when a credential token doesn't resolve to a user.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrUserNotFound is returned when operating on an unregistered username.
	ErrUserNotFound = errors.New("user not found")
)

// Service provides password-less authentication: registration mints an
// opaque credential token, login exchanges it for a short-lived JWT.
type Service struct {
	store     identity.Store
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(store identity.Store, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     store,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new user and returns its credential token.
func (s *Service) Register(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}

	token, err := generateCredential()
	if err != nil {
		return "", fmt.Errorf("generate credential: %w", err)
	}

	if _, err := s.store.CreateUser(ctx, username, token); err != nil {
		if errors.Is(err, identity.ErrDuplicateUser) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	return token, nil
}

// Login validates a credential token, marks the user logged in, and
// returns a JWT session token together with the username.
func (s *Service) Login(ctx context.Context, credential string) (string, string, error) {
	user, err := s.store.GetUserByToken(ctx, credential)
	if err != nil {
		if errors.Is(err, identity.ErrAuthFailure) {
			return "", "", ErrInvalidToken
		}
		return "", "", fmt.Errorf("authenticate: %w", err)
	}

	if err := s.store.SetLoginState(ctx, user.Username, true); err != nil {
		return "", "", fmt.Errorf("set login state: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.Username)
	if err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}

	return token, user.Username, nil
}

// Logout marks the user logged out.
func (s *Service) Logout(ctx context.Context, username string) error {
	if err := s.store.SetLoginState(ctx, username, false); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set login state: %w", err)
	}
	return nil
}

// ValidateToken validates a JWT session token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// generateCredential mints a 128-bit random token, hex encoded.
func generateCredential() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
