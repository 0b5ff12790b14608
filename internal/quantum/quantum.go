// Package quantum answers messages that matched a quantum application
// intent: listing the reachable quantum systems, or narrating a simulated
// run of any other application.
package quantum

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/intent"
	"github.com/qcatchat/catchat/internal/llm"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/prompts"
)

// Defaults applied when a chat request does not choose a target.
const (
	DefaultComputer = "simulator"
	DefaultQubits   = 5
)

// MaxQubits caps the simulated register size.
const MaxQubits = 64

// BuiltinSystems substitutes for the catalog when the store cannot be read.
var BuiltinSystems = []core.QuantumSystem{
	{
		Name:           "Rigetti QVM",
		QubitCount:     30,
		SystemType:     "simulator",
		IsFree:         true,
		RequiresAPIKey: false,
		Description:    "Rigetti Quantum Virtual Machine running locally",
	},
	{
		Name:           "IBM Quantum",
		QubitCount:     127,
		SystemType:     "superconducting",
		IsFree:         true,
		RequiresAPIKey: true,
		Description:    "IBM Quantum open plan devices",
	},
	{
		Name:           "IonQ Aria",
		QubitCount:     25,
		SystemType:     "trapped ion",
		IsFree:         false,
		RequiresAPIKey: true,
		Description:    "IonQ trapped-ion system available through cloud providers",
	},
}

// Catalog reads applications and systems.
type Catalog interface {
	GetApplication(ctx context.Context, id int64) (*core.QuantumApplication, error)
	ListSystems(ctx context.Context) ([]core.QuantumSystem, error)
}

// Request is a matched quantum message.
type Request struct {
	Query    string
	Match    *intent.Match
	Computer string
	Qubits   int
}

// Execution is the structured result of a simulated run, attached to the
// reply as quantum_data.
type Execution struct {
	ApplicationID   int64   `json:"application_id"`
	Application     string  `json:"application"`
	Confidence      float64 `json:"confidence"`
	Parameters      *string `json:"parameters"`
	QuantumComputer string  `json:"quantum_computer"`
	Qubits          int     `json:"qubits"`
	Simulated       bool    `json:"simulated"`
	Measurement     string  `json:"measurement,omitempty"`
}

// Handler produces replies for quantum intents.
type Handler struct {
	catalog Catalog
	guard   *llm.Guard
}

// NewHandler creates a quantum handler.
func NewHandler(catalog Catalog, guard *llm.Guard) *Handler {
	return &Handler{catalog: catalog, guard: guard}
}

// Systems returns the catalog in display order. The second result is false
// when the built-in set was substituted.
func (h *Handler) Systems(ctx context.Context) ([]core.QuantumSystem, bool) {
	var systems []core.QuantumSystem
	var err error
	if h.catalog != nil {
		systems, err = h.catalog.ListSystems(ctx)
	}
	if h.catalog == nil || err != nil || len(systems) == 0 {
		if err != nil {
			logging.Warn("quantum systems catalog unavailable, using built-in set: %v", err)
		}
		systems = slices.Clone(BuiltinSystems)
		SortSystems(systems)
		return systems, false
	}
	SortSystems(systems)
	return systems, true
}

// SortSystems orders free systems first, then larger machines first.
func SortSystems(systems []core.QuantumSystem) {
	slices.SortStableFunc(systems, func(a, b core.QuantumSystem) int {
		if a.IsFree != b.IsFree {
			if a.IsFree {
				return -1
			}
			return 1
		}
		return b.QubitCount - a.QubitCount
	})
}

// Answer handles a matched quantum request.
func (h *Handler) Answer(ctx context.Context, req Request) core.StructuredReply {
	app := h.application(ctx, req.Match)
	if app.IsSystemsListing() {
		return h.listSystems(ctx, req.Query)
	}
	return h.execute(ctx, app, req)
}

func (h *Handler) application(ctx context.Context, m *intent.Match) *core.QuantumApplication {
	var id int64
	if m != nil {
		id = m.ApplicationID
	}
	if h.catalog != nil {
		app, err := h.catalog.GetApplication(ctx, id)
		if err == nil {
			return app
		}
		logging.Warn("quantum application %d unavailable: %v", id, err)
	}
	return &core.QuantumApplication{
		ID:          id,
		Name:        fmt.Sprintf("Quantum application #%d", id),
		Description: "Details for this application could not be loaded",
	}
}

func (h *Handler) listSystems(ctx context.Context, query string) core.StructuredReply {
	systems, _ := h.Systems(ctx)

	res := h.guard.Complete(ctx, llm.RouteRequest{
		System: prompts.QuantumSystemsPrompt(systems, query),
		Prompt: query,
	}, llm.Fallback{Kind: "quantum_systems", Text: RenderCatalog(systems)})

	reply := prompts.FormatResponse(res.Text)
	reply.QuantumSystems = systems
	return reply
}

func (h *Handler) execute(ctx context.Context, app *core.QuantumApplication, req Request) core.StructuredReply {
	exec := Simulate(app, req)

	opts := prompts.ExecutionOptions{Computer: exec.QuantumComputer, Qubits: exec.Qubits}
	res := h.guard.Complete(ctx, llm.RouteRequest{
		System: prompts.QuantumExecutionPrompt(app, exec.Parameters, opts, req.Query),
		Prompt: req.Query,
	}, llm.Fallback{Kind: "quantum_execution"})

	reply := prompts.FormatResponse(res.Text)
	reply.QuantumData = exec
	return reply
}

// Simulate builds the execution record for app. Applications that need
// randomness get one measured bit per qubit.
func Simulate(app *core.QuantumApplication, req Request) Execution {
	computer := strings.TrimSpace(req.Computer)
	if computer == "" {
		computer = DefaultComputer
	}
	qubits := req.Qubits
	if qubits <= 0 {
		qubits = DefaultQubits
	}
	if qubits > MaxQubits {
		qubits = MaxQubits
	}

	exec := Execution{
		ApplicationID:   app.ID,
		Application:     app.Name,
		QuantumComputer: computer,
		Qubits:          qubits,
		Simulated:       true,
	}
	if req.Match != nil {
		exec.Confidence = req.Match.Confidence
		exec.Parameters = req.Match.Parameters
	}
	if app.RequiresRandomness {
		exec.Measurement = measure(qubits)
	}
	return exec
}

func measure(qubits int) string {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), uint(qubits)))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%0*b", qubits, n)
}

// RenderCatalog is the plain-text form of the catalog served when the
// completion provider cannot answer.
func RenderCatalog(systems []core.QuantumSystem) string {
	var b strings.Builder
	b.WriteString("Available quantum systems:\n")
	for i, s := range systems {
		fmt.Fprintf(&b, "%d. %s\n", i+1, prompts.DescribeSystem(s))
	}
	return strings.TrimRight(b.String(), "\n")
}
