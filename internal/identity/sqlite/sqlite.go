package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/pairchat-server/internal/identity"
)

// SQLiteStore implements identity.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT NOT NULL UNIQUE,
	token      TEXT NOT NULL UNIQUE,
	logged_in  BOOLEAN NOT NULL DEFAULT 0,
	login_at   DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser creates a user with its opaque credential token.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, token string) (*identity.User, error) {
	query := `
		INSERT INTO users (username, token, logged_in)
		VALUES (?, ?, 0)
	`
	result, err := s.db.ExecContext(ctx, query, username, token)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, identity.ErrDuplicateUser
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getUserBy(ctx, "id = ?", id)
}

// GetUserByToken resolves a credential token to its user.
func (s *SQLiteStore) GetUserByToken(ctx context.Context, token string) (*identity.User, error) {
	user, err := s.getUserBy(ctx, "token = ?", token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrAuthFailure
		}
		return nil, err
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*identity.User, error) {
	user, err := s.getUserBy(ctx, "username = ?", username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// SetLoginState flips the logged-in flag, stamping login_at on login.
func (s *SQLiteStore) SetLoginState(ctx context.Context, username string, loggedIn bool) error {
	var query string
	var args []any
	if loggedIn {
		query = `UPDATE users SET logged_in = 1, login_at = ? WHERE username = ?`
		args = []any{time.Now().UTC(), username}
	} else {
		query = `UPDATE users SET logged_in = 0 WHERE username = ?`
		args = []any{username}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// TouchLogin refreshes login_at for an already logged-in user.
func (s *SQLiteStore) TouchLogin(ctx context.Context, username string) error {
	query := `UPDATE users SET login_at = ? WHERE username = ? AND logged_in = 1`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), username); err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

// ListOnline returns all users currently marked logged in.
func (s *SQLiteStore) ListOnline(ctx context.Context) ([]*identity.User, error) {
	query := `
		SELECT id, username, token, logged_in, login_at, created_at
		FROM users
		WHERE logged_in = 1
		ORDER BY username
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query online users: %w", err)
	}
	defer rows.Close()

	users := make([]*identity.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate online users: %w", err)
	}
	return users, nil
}

func (s *SQLiteStore) getUserBy(ctx context.Context, where string, arg any) (*identity.User, error) {
	query := `
		SELECT id, username, token, logged_in, login_at, created_at
		FROM users
		WHERE ` + where
	row := s.db.QueryRowContext(ctx, query, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*identity.User, error) {
	var user identity.User
	var loginAt sql.NullTime
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Token,
		&user.LoggedIn,
		&loginAt,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	if loginAt.Valid {
		user.LoginAt = loginAt.Time
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
