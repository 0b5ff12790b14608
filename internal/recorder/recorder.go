// Package recorder persists answered chat exchanges. Recording never fails a
// chat response: errors are logged and reported as a boolean.
package recorder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/metrics"
	"github.com/qcatchat/catchat/internal/storage"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultMaxAttempts   = 3
	DefaultBackoff       = 500 * time.Millisecond
	DefaultUserID  int64 = 1
)

// ChatWriter stores exchanges and the secondary per-user rows.
type ChatWriter interface {
	InsertExchange(ctx context.Context, ex *core.ChatExchange) error
	InsertInteraction(ctx context.Context, userID int64, mode core.Mode) error
	EnsurePreference(ctx context.Context, userID int64, mode core.Mode) error
}

// UserDirectory answers which users exist.
type UserDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
	EnsureDefault(ctx context.Context, id int64) error
}

// Config controls retries and the fallback user.
type Config struct {
	MaxAttempts   int
	Backoff       time.Duration
	DefaultUserID int64
}

// Exchange is one answered request as the transport saw it. UserID is the
// raw client value and may be empty or non-numeric.
type Exchange struct {
	UserID   string
	Message  string
	Mode     core.Mode
	Response string
}

// Recorder writes exchanges with bounded retry on lock contention.
type Recorder struct {
	chats ChatWriter
	users UserDirectory
	cfg   Config

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a recorder.
func New(chats ChatWriter, users UserDirectory, cfg Config) *Recorder {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.DefaultUserID <= 0 {
		cfg.DefaultUserID = DefaultUserID
	}
	return &Recorder{chats: chats, users: users, cfg: cfg, sleep: sleepCtx}
}

// Record saves the exchange and reports whether the history row was written.
func (r *Recorder) Record(ctx context.Context, ex Exchange) bool {
	if _, err := r.Save(ctx, ex); err != nil {
		logging.WithFields(map[string]interface{}{
			"user_id": ex.UserID,
			"mode":    string(ex.Mode),
		}).Error("failed to record chat exchange: %v", err)
		return false
	}
	return true
}

// Save resolves the user, writes the chat_history row with retry, then makes
// best-effort secondary writes. Only the history row affects the error.
func (r *Recorder) Save(ctx context.Context, ex Exchange) (*core.ChatExchange, error) {
	userID, err := r.ResolveUser(ctx, ex.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	mode := ex.Mode
	if mode == "" {
		mode = core.ModeStandard
	}

	row := &core.ChatExchange{
		UserID:   userID,
		Message:  ex.Message,
		Mode:     mode,
		Response: ex.Response,
	}

	if err := r.insertWithRetry(ctx, row); err != nil {
		return nil, err
	}

	if err := r.chats.InsertInteraction(ctx, userID, mode); err != nil {
		logging.Warn("failed to record interaction for user %d: %v", userID, err)
	}
	if err := r.chats.EnsurePreference(ctx, userID, mode); err != nil {
		logging.Warn("failed to record preference for user %d: %v", userID, err)
	}

	return row, nil
}

// ResolveUser maps a raw client user id to a stored user. Numeric ids of
// existing users are kept; anything else becomes the default user, which is
// created on first use.
func (r *Recorder) ResolveUser(ctx context.Context, raw string) (int64, error) {
	if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil && id > 0 {
		exists, err := r.users.Exists(ctx, id)
		if err != nil {
			return 0, err
		}
		if exists {
			return id, nil
		}
	}

	if err := r.users.EnsureDefault(ctx, r.cfg.DefaultUserID); err != nil {
		return 0, fmt.Errorf("create default user: %w", err)
	}
	return r.cfg.DefaultUserID, nil
}

func (r *Recorder) insertWithRetry(ctx context.Context, row *core.ChatExchange) error {
	var err error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err = r.chats.InsertExchange(ctx, row)
		if err == nil {
			metrics.RecorderAttempts.WithLabelValues("success").Inc()
			return nil
		}

		if !storage.IsTransient(err) {
			metrics.RecorderAttempts.WithLabelValues("failed").Inc()
			return fmt.Errorf("insert chat history: %w", err)
		}

		metrics.RecorderAttempts.WithLabelValues("retry").Inc()
		if attempt == r.cfg.MaxAttempts {
			break
		}

		logging.Warn("chat history insert contended (attempt %d/%d): %v", attempt, r.cfg.MaxAttempts, err)
		if serr := r.sleep(ctx, r.cfg.Backoff); serr != nil {
			return fmt.Errorf("insert chat history: %w", serr)
		}
	}

	metrics.RecorderAttempts.WithLabelValues("exhausted").Inc()
	return fmt.Errorf("insert chat history after %d attempts: %w", r.cfg.MaxAttempts, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
