package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat-server/internal/identity"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// mustFrame waits for the next outbound frame on the peer and asserts it.
func mustFrame(t *testing.T, p *Peer, want string) {
	t.Helper()

	select {
	case frame := <-p.Frames():
		if frame != want {
			t.Fatalf("unexpected frame: got %q, want %q", frame, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected frame %q not received", want)
	}
}

// mustClosed polls until the peer reports closed.
func mustClosed(t *testing.T, p *Peer) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Closed() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("peer %s expected to be closed", p.Username)
}

// memStore is an in-memory identity.Store for core tests.
type memStore struct {
	mu    sync.Mutex
	users map[string]*identity.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*identity.User)}
}

func (m *memStore) add(username string, loggedIn bool, loginAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username] = &identity.User{
		Username: username,
		Token:    "token-" + username,
		LoggedIn: loggedIn,
		LoginAt:  loginAt,
	}
}

func (m *memStore) CreateUser(_ context.Context, username, token string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return nil, identity.ErrDuplicateUser
	}
	u := &identity.User{Username: username, Token: token}
	m.users[username] = u
	return u, nil
}

func (m *memStore) GetUserByToken(_ context.Context, token string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Token == token {
			return u, nil
		}
	}
	return nil, identity.ErrAuthFailure
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

func (m *memStore) SetLoginState(_ context.Context, username string, loggedIn bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.LoggedIn = loggedIn
	if loggedIn {
		u.LoginAt = time.Now().UTC()
	}
	return nil
}

func (m *memStore) TouchLogin(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok && u.LoggedIn {
		u.LoginAt = time.Now().UTC()
	}
	return nil
}

func (m *memStore) ListOnline(_ context.Context) ([]*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*identity.User, 0)
	for _, u := range m.users {
		if u.LoggedIn {
			copied := *u
			users = append(users, &copied)
		}
	}
	return users, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) loggedIn(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	return ok && u.LoggedIn
}
