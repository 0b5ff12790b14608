// Package mockservers provides httptest mock servers for external APIs.
package mockservers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// OpenAIMockServer provides a mock OpenAI-compatible API covering chat
// completions and the audio endpoints.
type OpenAIMockServer struct {
	Server   *httptest.Server
	Handlers map[string]http.HandlerFunc

	// Reply is returned by the default chat completions handler.
	Reply string
	// Audio is streamed by the default speech handler.
	Audio []byte
	// Transcript is returned by the default transcription handler.
	Transcript string

	mu    sync.Mutex
	calls map[string]int
	t     *testing.T
}

// NewOpenAIMockServer creates a new mock OpenAI server.
func NewOpenAIMockServer(t *testing.T) *OpenAIMockServer {
	t.Helper()

	mock := &OpenAIMockServer{
		Handlers:   make(map[string]http.HandlerFunc),
		Reply:      "Summary: Mock summary.\nDetails: Mock details.",
		Audio:      []byte("ID3mock-mp3-bytes"),
		Transcript: "what is the weather in Boston",
		calls:      make(map[string]int),
		t:          t,
	}

	mock.SetupDefaults()

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.calls[r.URL.Path]++
		mock.mu.Unlock()

		if r.Header.Get("Authorization") == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": "missing API key"},
			})
			return
		}

		if handler, ok := mock.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))

	t.Cleanup(func() {
		mock.Server.Close()
	})

	return mock
}

// URL returns the server root.
func (m *OpenAIMockServer) URL() string {
	return m.Server.URL
}

// Calls returns how many requests hit path.
func (m *OpenAIMockServer) Calls(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[path]
}

// SetupDefaults sets up default response handlers.
func (m *OpenAIMockServer) SetupDefaults() {
	m.Handlers["/v1/chat/completions"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-mock",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": m.Reply},
					"finish_reason": "stop",
				},
			},
		})
	}

	m.Handlers["/v1/audio/transcriptions"] = func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		io.Copy(io.Discard, file)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": m.Transcript})
	}

	m.Handlers["/v1/audio/speech"] = func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(m.Audio)
	}
}
