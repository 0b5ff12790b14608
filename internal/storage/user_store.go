package storage

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/qcatchat/catchat/internal/core"
)

// DefaultUsername is the account created when chat arrives before any user exists.
const DefaultUsername = "default"

// UserStore handles user persistence
type UserStore struct {
	db *DB
}

// NewUserStore creates a new user store
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Exists reports whether a user with the given ID exists.
func (s *UserStore) Exists(ctx context.Context, id int64) (bool, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return false, err
	}

	var n int
	err = conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

// Count returns the number of users.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// EnsureDefault creates the default user under the given ID. Safe to call
// repeatedly and from concurrent requests. Fails with core.ErrRecordNotFound
// when the row could not be created, e.g. because another user already holds
// the default username.
func (s *UserStore) EnsureDefault(ctx context.Context, id int64) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (id, username, email, password)
		VALUES (?, ?, '', '')
	`, id, DefaultUsername)
	if err != nil {
		return err
	}

	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: default user %d (username %q is taken)", core.ErrRecordNotFound, id, DefaultUsername)
	}
	return nil
}

// Create stores a new user with a bcrypt hash of the password.
func (s *UserStore) Create(ctx context.Context, username, email, password string) (*core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username", core.ErrMissingRequired)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password", core.ErrMissingRequired)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	res, err := conn.ExecContext(ctx, `
		INSERT INTO users (username, email, password) VALUES (?, ?, ?)
	`, username, email, string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: username %q", core.ErrDuplicateRecord, username)
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// GetByID returns a user by ID
func (s *UserStore) GetByID(ctx context.Context, id int64) (*core.User, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetByUsername returns a user by username
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.getOne(ctx, "username = ?", username)
}

// CheckPassword compares a plaintext password against the stored hash.
func (s *UserStore) CheckPassword(ctx context.Context, username, password string) (bool, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if user.PasswordHash == "" {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil, nil
}

func (s *UserStore) getOne(ctx context.Context, where string, arg any) (*core.User, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	user := &core.User{}
	err = conn.QueryRowContext(ctx, `
		SELECT id, username, email, password, created_at FROM users WHERE `+where,
		arg,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}
