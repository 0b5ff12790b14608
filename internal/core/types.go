// Package core defines the fundamental types for Catchat.
package core

import (
	"time"
)

// -----------------------------------------------------------------------------
// MODE - How an exchange was answered
// -----------------------------------------------------------------------------

// Mode tags a chat exchange with the path that produced its answer.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeQuantum  Mode = "quantum"
	ModeWeather  Mode = "weather"
)

// ParseMode maps free-form client input to a Mode, defaulting to standard.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeQuantum, ModeWeather:
		return Mode(s)
	default:
		return ModeStandard
	}
}

// -----------------------------------------------------------------------------
// INTENT CATALOG
// -----------------------------------------------------------------------------

// AvailableSystemsApp is the application name that means "list the quantum
// systems" rather than "run an application".
const AvailableSystemsApp = "Available Quantum Systems"

// IntentPattern is one row of the ordered intent catalog.
type IntentPattern struct {
	ID               int64   `json:"id"`
	Pattern          string  `json:"pattern"`
	ApplicationID    int64   `json:"application_id"`
	Confidence       float64 `json:"confidence"`
	ParameterPattern string  `json:"parameter_pattern,omitempty"` // empty when absent
}

// QuantumApplication is a named capability an intent can resolve to.
type QuantumApplication struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	RequiresRandomness bool      `json:"requires_randomness"`
	QubitCount         int       `json:"qubit_count"`
	CreatedAt          time.Time `json:"created_at"`
}

// IsSystemsListing reports whether the application is the distinguished
// "list available systems" entry.
func (a *QuantumApplication) IsSystemsListing() bool {
	return a != nil && a.Name == AvailableSystemsApp
}

// QuantumSystem describes one reachable quantum computer or simulator.
type QuantumSystem struct {
	Name           string `json:"name"`
	QubitCount     int    `json:"qubit_count"`
	SystemType     string `json:"system_type"`
	IsFree         bool   `json:"is_free"`
	RequiresAPIKey bool   `json:"requires_api_key"`
	Description    string `json:"description"`
}

// -----------------------------------------------------------------------------
// PERSISTENCE
// -----------------------------------------------------------------------------

// User is a persisted account that chat history hangs off.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChatExchange is one answered request. Written once, never updated.
type ChatExchange struct {
	ID        string    `json:"id"` // UUID
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	Mode      Mode      `json:"mode"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------------
// REPLY
// -----------------------------------------------------------------------------

// StructuredReply is what clients receive under the "response" key.
type StructuredReply struct {
	Summary        string          `json:"summary"`
	Details        string          `json:"details"`
	QuantumSystems []QuantumSystem `json:"quantum_systems,omitempty"`
	WeatherData    any             `json:"weather_data,omitempty"`
	QuantumData    any             `json:"quantum_data,omitempty"`
}
