package prompts

import (
	"strings"
	"testing"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/weather"
)

func TestFormatResponse(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSummary string
		wantDetails string
	}{
		{
			name:        "both markers",
			raw:         "Summary: It is sunny.\nDetails: Clear skies all day.",
			wantSummary: "It is sunny.",
			wantDetails: "Clear skies all day.",
		},
		{
			name:        "only summary marker",
			raw:         "Summary: just this",
			wantSummary: "",
			wantDetails: "Summary: just this",
		},
		{
			name:        "no markers",
			raw:         "  plain text reply  ",
			wantSummary: "",
			wantDetails: "  plain text reply  ",
		},
		{
			name:        "details before summary",
			raw:         "Details: first\nSummary: second",
			wantSummary: "second",
			wantDetails: "first\nSummary: second",
		},
		{
			name:        "repeated details marker",
			raw:         "Summary: s\nDetails: one\nDetails: two",
			wantSummary: "s",
			wantDetails: "one",
		},
		{
			name:        "preamble ignored",
			raw:         "Sure!\nSummary: short\n\nDetails:\nlong answer\n",
			wantSummary: "short",
			wantDetails: "long answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatResponse(tt.raw)
			if got.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if got.Details != tt.wantDetails {
				t.Errorf("Details = %q, want %q", got.Details, tt.wantDetails)
			}
		})
	}
}

func TestGenericSystemPrompt(t *testing.T) {
	if !strings.Contains(GenericSystemPrompt(), "Quantum Computers") {
		t.Errorf("GenericSystemPrompt() = %q", GenericSystemPrompt())
	}
}

func TestQuantumSystemsPrompt(t *testing.T) {
	systems := []core.QuantumSystem{
		{Name: "Rigetti QVM", QubitCount: 30, SystemType: "simulator", IsFree: true},
		{Name: "IonQ Aria", QubitCount: 25, SystemType: "trapped-ion", RequiresAPIKey: true},
	}
	query := "Which quantum computers can I use?"

	got := QuantumSystemsPrompt(systems, query)

	for _, want := range []string{
		"1. Rigetti QVM: 30 qubits, simulator, free, no API key required",
		"2. IonQ Aria: 25 qubits, trapped-ion, paid access, API key required",
		"Use ONLY the facts",
		"Ignore any prior or trained knowledge",
		"User query: " + query,
		"Summary:",
		"Details:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestQuantumSystemsPrompt_Deterministic(t *testing.T) {
	systems := []core.QuantumSystem{{Name: "A", QubitCount: 1}}
	if QuantumSystemsPrompt(systems, "q") != QuantumSystemsPrompt(systems, "q") {
		t.Error("prompt should be deterministic")
	}
}

func TestWeatherPrompt(t *testing.T) {
	temp, wind := 20.0, 10.0
	reading := &weather.Reading{
		Location:    "Boston, MA, United States",
		Temperature: &temp,
		WindSpeed:   &wind,
		Conditions:  "Clear",
	}

	got := WeatherPrompt(reading.US(), "weather in Boston")

	for _, want := range []string{
		"Location: Boston, MA, United States",
		"Conditions: Clear",
		"Temperature: 20°C (68°F)",
		"Wind speed: 10 km/h (6.2 mph)",
		"User query: weather in Boston",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Humidity") {
		t.Error("absent humidity should not be listed")
	}
}

func TestQuantumExecutionPrompt(t *testing.T) {
	app := &core.QuantumApplication{Name: "Quantum Random Number Generator", Description: "random bits", RequiresRandomness: true}
	params := "16"

	got := QuantumExecutionPrompt(app, &params, ExecutionOptions{Computer: "simulator", Qubits: 5}, "give me 16 random bits")

	for _, want := range []string{
		"Application: Quantum Random Number Generator",
		"Target quantum computer: simulator",
		"Qubits allocated: 5",
		"quantum randomness",
		"Parameters extracted from the request: 16",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}
