package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qcatchat/catchat/internal/core"
)

// ChatStore handles chat history persistence
type ChatStore struct {
	db *DB
}

// NewChatStore creates a new chat store
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

// InsertExchange writes one chat_history row. A missing ID is generated.
func (s *ChatStore) InsertExchange(ctx context.Context, ex *core.ChatExchange) error {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	if ex.Mode == "" {
		ex.Mode = core.ModeStandard
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO chat_history (exchange_id, user_id, message, mode, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ex.ID, ex.UserID, ex.Message, string(ex.Mode), ex.Response, ex.CreatedAt)
	return err
}

// InsertInteraction records a chat_<mode> action for the user.
func (s *ChatStore) InsertInteraction(ctx context.Context, userID int64, mode core.Mode) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO user_interactions (user_id, action_type) VALUES (?, ?)
	`, userID, "chat_"+string(mode))
	return err
}

// EnsurePreference stores the user's first observed mode. Existing
// preferences are left untouched.
func (s *ChatStore) EnsurePreference(ctx context.Context, userID int64, mode core.Mode) error {
	prefs, err := json.Marshal(map[string]string{"mode": string(mode)})
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_preferences (user_id, preferences) VALUES (?, ?)
	`, userID, string(prefs))
	return err
}

// Preference returns the stored preferences JSON for a user.
func (s *ChatStore) Preference(ctx context.Context, userID int64) (string, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return "", err
	}

	var prefs string
	err = conn.QueryRowContext(ctx, `
		SELECT preferences FROM user_preferences WHERE user_id = ?
	`, userID).Scan(&prefs)
	if err != nil {
		return "", notFound(err)
	}
	return prefs, nil
}

// History returns the most recent exchanges for a user, newest first.
func (s *ChatStore) History(ctx context.Context, userID int64, limit int) ([]*core.ChatExchange, error) {
	if limit <= 0 {
		limit = 50
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT exchange_id, user_id, message, mode, COALESCE(response, ''), created_at
		FROM chat_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []*core.ChatExchange
	for rows.Next() {
		ex := &core.ChatExchange{}
		var mode string
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.Message, &mode, &ex.Response, &ex.CreatedAt); err != nil {
			return nil, err
		}
		ex.Mode = core.Mode(mode)
		exchanges = append(exchanges, ex)
	}

	return exchanges, rows.Err()
}

// CountInteractions returns how many interactions a user has.
func (s *ChatStore) CountInteractions(ctx context.Context, userID int64) (int, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_interactions WHERE user_id = ?
	`, userID).Scan(&n)
	return n, err
}
