package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/qcatchat/catchat/internal/core"
)

// ChatSession manages an interactive chat session
type ChatSession struct {
	agent  *Agent
	userID string
	mode   core.Mode
	turns  int
}

// NewChatSession creates a new chat session
func NewChatSession(agent *Agent, userID string) *ChatSession {
	return &ChatSession{
		agent:  agent,
		userID: userID,
		mode:   core.ModeStandard,
	}
}

// SendMessage routes one message and returns the reply.
func (s *ChatSession) SendMessage(ctx context.Context, message string) (*Reply, error) {
	reply, err := s.agent.Handle(ctx, Request{
		Message:  message,
		UserID:   s.userID,
		Mode:     s.mode,
		ClientIP: "127.0.0.1",
	})
	if err != nil {
		return nil, err
	}
	s.turns++
	return reply, nil
}

// SetMode changes the mode recorded for generic answers.
func (s *ChatSession) SetMode(mode core.Mode) {
	s.mode = mode
}

// RunInteractive runs an interactive chat reading from in and writing to out.
func (s *ChatSession) RunInteractive(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Catchat")
	fmt.Fprintln(out, "   Type 'exit' to quit, 'mode <standard|quantum|weather>' to switch, 'stats' for routing counts")
	fmt.Fprintln(out)

	for {
		fmt.Fprint(out, "You: ")
		input, err := reader.ReadString('\n')
		if err == io.EOF && strings.TrimSpace(input) == "" {
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF

		input = strings.TrimSpace(input)
		if input == "" {
			if eof {
				return nil
			}
			continue
		}

		lower := strings.ToLower(input)
		switch {
		case lower == "exit" || lower == "quit" || lower == "bye":
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		case strings.HasPrefix(lower, "mode "):
			s.SetMode(core.ParseMode(strings.TrimSpace(lower[5:])))
			fmt.Fprintf(out, "Mode set to %s\n\n", s.mode)
			continue
		case lower == "stats":
			stats := s.agent.GetStats()
			fmt.Fprintf(out, "\nTurns: %d | Weather: %d | Quantum: %d | Generic: %d\n\n",
				s.turns, stats.Weather, stats.Quantum, stats.Generic)
			continue
		}

		reply, err := s.SendMessage(ctx, input)
		if err != nil {
			fmt.Fprintf(out, "\nError: %v\n\n", err)
			continue
		}

		fmt.Fprintf(out, "\nCatchat [%s]: %s\n\n", reply.Path, render(reply.Response))

		if eof {
			return nil
		}
	}
}

func render(r core.StructuredReply) string {
	var b strings.Builder
	if r.Summary != "" {
		b.WriteString(r.Summary)
		b.WriteString("\n\n")
	}
	b.WriteString(r.Details)
	for _, sys := range r.QuantumSystems {
		fmt.Fprintf(&b, "\n  - %s (%d qubits)", sys.Name, sys.QubitCount)
	}
	return b.String()
}
