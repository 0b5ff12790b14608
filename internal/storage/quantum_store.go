package storage

import (
	"context"
	"database/sql"

	"github.com/qcatchat/catchat/internal/core"
)

// QuantumStore handles quantum application and system persistence
type QuantumStore struct {
	db *DB
}

// NewQuantumStore creates a new quantum store
func NewQuantumStore(db *DB) *QuantumStore {
	return &QuantumStore{db: db}
}

// GetApplication returns an application by ID
func (s *QuantumStore) GetApplication(ctx context.Context, id int64) (*core.QuantumApplication, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	app := &core.QuantumApplication{}
	var description sql.NullString
	err = conn.QueryRowContext(ctx, `
		SELECT id, name, description, requires_randomness, qubit_count, created_at
		FROM quantum_applications WHERE id = ?
	`, id).Scan(&app.ID, &app.Name, &description, &app.RequiresRandomness, &app.QubitCount, &app.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, core.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	app.Description = description.String
	return app, nil
}

// ListApplications returns all applications ordered by ID
func (s *QuantumStore) ListApplications(ctx context.Context) ([]*core.QuantumApplication, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT id, name, description, requires_randomness, qubit_count, created_at
		FROM quantum_applications
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*core.QuantumApplication
	for rows.Next() {
		app := &core.QuantumApplication{}
		var description sql.NullString
		if err := rows.Scan(&app.ID, &app.Name, &description, &app.RequiresRandomness, &app.QubitCount, &app.CreatedAt); err != nil {
			return nil, err
		}
		app.Description = description.String
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

// ListSystems returns the quantum systems catalog, free systems first and
// larger machines before smaller ones.
func (s *QuantumStore) ListSystems(ctx context.Context) ([]core.QuantumSystem, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT name, qubit_count, system_type, is_free, requires_api_key, description
		FROM quantum_systems
		ORDER BY is_free DESC, qubit_count DESC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var systems []core.QuantumSystem
	for rows.Next() {
		var sys core.QuantumSystem
		if err := rows.Scan(&sys.Name, &sys.QubitCount, &sys.SystemType, &sys.IsFree, &sys.RequiresAPIKey, &sys.Description); err != nil {
			return nil, err
		}
		systems = append(systems, sys)
	}

	return systems, rows.Err()
}
