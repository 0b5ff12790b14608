// Package prompts builds the instructions sent to the completion provider
// and parses what comes back. Everything here is a pure function.
package prompts

import (
	"fmt"
	"strings"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/weather"
)

const genericRole = "You are the user interface to various Quantum Computers. You are also an helpful assistant"

const outputFormat = `Format your answer exactly as:
Summary: <one or two sentences>
Details: <the full answer>`

// GenericSystemPrompt is the system message for ordinary chat.
func GenericSystemPrompt() string {
	return genericRole
}

// QuantumSystemsPrompt asks for an answer grounded in the systems catalog.
func QuantumSystemsPrompt(systems []core.QuantumSystem, query string) string {
	facts := make([]string, len(systems))
	for i, s := range systems {
		facts[i] = fmt.Sprintf("%d. %s", i+1, DescribeSystem(s))
	}

	return compose(
		"You are Catchat, the interface to the quantum computers this service can reach.",
		"Quantum systems currently available",
		facts,
		query,
	)
}

// WeatherPrompt asks for an answer grounded in one weather reading.
func WeatherPrompt(view weather.USView, query string) string {
	var facts []string
	add := func(label, value string) {
		if value != "" {
			facts = append(facts, fmt.Sprintf("%d. %s: %s", len(facts)+1, label, value))
		}
	}

	add("Location", view.Location)
	add("Conditions", view.Conditions)
	add("Temperature", pair(view.Temperature, "°C", view.TemperatureF, "°F"))
	add("Feels like", pair(view.FeelsLike, "°C", view.FeelsLikeF, "°F"))
	add("Humidity", num(view.Humidity, "%"))
	add("Wind speed", pair(view.WindSpeed, " km/h", view.WindSpeedMPH, " mph"))
	add("Wind direction", num(view.WindDirection, "°"))
	add("Observed at", strings.TrimSpace(view.Timestamp+" "+view.Timezone))

	return compose(
		"You are Catchat, a helpful assistant answering a question about the weather.",
		"Current weather data",
		facts,
		query,
	)
}

// ExecutionOptions describe where a simulated quantum run takes place.
type ExecutionOptions struct {
	Computer string
	Qubits   int
}

// QuantumExecutionPrompt asks for a narrative of running an application on
// the chosen quantum computer. The run itself is simulated.
func QuantumExecutionPrompt(app *core.QuantumApplication, params *string, opts ExecutionOptions, query string) string {
	facts := []string{
		fmt.Sprintf("1. Application: %s", app.Name),
		fmt.Sprintf("2. Description: %s", app.Description),
		fmt.Sprintf("3. Target quantum computer: %s", opts.Computer),
		fmt.Sprintf("4. Qubits allocated: %d", opts.Qubits),
	}
	if app.RequiresRandomness {
		facts = append(facts, fmt.Sprintf("%d. The application draws on quantum randomness", len(facts)+1))
	}
	if params != nil {
		facts = append(facts, fmt.Sprintf("%d. Parameters extracted from the request: %s", len(facts)+1, *params))
	}

	return compose(
		"You are Catchat, the interface to a quantum computing service. Describe the simulated execution of the requested quantum application.",
		"Execution details",
		facts,
		query,
	)
}

func compose(role, heading string, facts []string, query string) string {
	var b strings.Builder
	b.WriteString(role)
	b.WriteString("\n\n")
	b.WriteString(heading)
	b.WriteString(":\n")
	if len(facts) == 0 {
		b.WriteString("(none)\n")
	}
	for _, f := range facts {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	b.WriteString("\nUse ONLY the facts listed above to answer. Ignore any prior or trained knowledge about this topic, even if it seems more current. If the facts do not answer the question, say so.\n\n")
	b.WriteString("User query: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(outputFormat)
	return b.String()
}

// DescribeSystem renders one catalog entry on a single line.
func DescribeSystem(s core.QuantumSystem) string {
	access := "paid access"
	if s.IsFree {
		access = "free"
	}
	key := "no API key required"
	if s.RequiresAPIKey {
		key = "API key required"
	}

	line := fmt.Sprintf("%s: %d qubits, %s, %s, %s", s.Name, s.QubitCount, s.SystemType, access, key)
	if s.Description != "" {
		line += ". " + s.Description
	}
	return line
}

func num(v *float64, unit string) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g%s", *v, unit)
}

func pair(a *float64, unitA string, b *float64, unitB string) string {
	switch {
	case a == nil:
		return ""
	case b == nil:
		return num(a, unitA)
	default:
		return num(a, unitA) + " (" + num(b, unitB) + ")"
	}
}
