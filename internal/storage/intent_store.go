package storage

import (
	"context"
	"database/sql"

	"github.com/qcatchat/catchat/internal/core"
)

// IntentStore reads the quantum intent catalog.
type IntentStore struct {
	db *DB
}

// NewIntentStore creates a new intent store
func NewIntentStore(db *DB) *IntentStore {
	return &IntentStore{db: db}
}

// List returns every intent pattern in evaluation order.
func (s *IntentStore) List(ctx context.Context) ([]core.IntentPattern, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT id, intent_pattern, quantum_application_id,
		       confidence_threshold, parameter_extraction_pattern
		FROM quantum_intent_mapping
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []core.IntentPattern
	for rows.Next() {
		var p core.IntentPattern
		var param sql.NullString
		if err := rows.Scan(&p.ID, &p.Pattern, &p.ApplicationID, &p.Confidence, &param); err != nil {
			return nil, err
		}
		p.ParameterPattern = param.String
		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}

// Add appends a pattern to the end of the catalog.
func (s *IntentStore) Add(ctx context.Context, p core.IntentPattern) (int64, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}

	var param any
	if p.ParameterPattern != "" {
		param = p.ParameterPattern
	}

	res, err := conn.ExecContext(ctx, `
		INSERT INTO quantum_intent_mapping
			(intent_pattern, quantum_application_id, confidence_threshold, parameter_extraction_pattern)
		VALUES (?, ?, ?, ?)
	`, p.Pattern, p.ApplicationID, p.Confidence, param)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
