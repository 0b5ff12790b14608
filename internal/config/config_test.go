package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// Default Config Tests
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if cfg.Server.Port != 8001 {
		t.Errorf("Server.Port = %d, want 8001", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", cfg.Server.AllowedOrigins)
	}
	if cfg.LLM.Timeout != 15*time.Second {
		t.Errorf("LLM.Timeout = %v, want 15s", cfg.LLM.Timeout)
	}
	if cfg.LLM.OpenAI.Model != "gpt-4-turbo" {
		t.Errorf("LLM.OpenAI.Model = %q, want gpt-4-turbo", cfg.LLM.OpenAI.Model)
	}
	if cfg.Weather.Timeout != 10*time.Second {
		t.Errorf("Weather.Timeout = %v, want 10s", cfg.Weather.Timeout)
	}
	if cfg.Geo.Timeout != 5*time.Second {
		t.Errorf("Geo.Timeout = %v, want 5s", cfg.Geo.Timeout)
	}
	if cfg.Recorder.MaxAttempts != 3 {
		t.Errorf("Recorder.MaxAttempts = %d, want 3", cfg.Recorder.MaxAttempts)
	}
	if cfg.Recorder.DefaultUserID != 1 {
		t.Errorf("Recorder.DefaultUserID = %d, want 1", cfg.Recorder.DefaultUserID)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/catchat"

	if got := cfg.DatabasePath(); got != "/tmp/catchat/catchat.db" {
		t.Errorf("DatabasePath() = %q", got)
	}

	cfg.Database.Path = "/var/lib/catchat.db"
	if got := cfg.DatabasePath(); got != "/var/lib/catchat.db" {
		t.Errorf("DatabasePath() = %q, want explicit path", got)
	}
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8001 {
		t.Errorf("Server.Port = %d, want default 8001", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("LLM.Provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 15*time.Second {
		t.Errorf("LLM.Timeout = %v, want 15s", cfg.LLM.Timeout)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := map[string]interface{}{
		"server": map[string]interface{}{"port": 9090},
		"llm":    map[string]interface{}{"provider": "ollama", "timeout": "3s"},
		"weather": map[string]interface{}{
			"default_location": "Boston, MA",
		},
	}
	data, _ := json.Marshal(content)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("LLM.Provider = %q, want ollama", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 3*time.Second {
		t.Errorf("LLM.Timeout = %v, want 3s", cfg.LLM.Timeout)
	}
	if cfg.Weather.DefaultLocation != "Boston, MA" {
		t.Errorf("Weather.DefaultLocation = %q", cfg.Weather.DefaultLocation)
	}
	// Untouched keys keep defaults
	if cfg.Recorder.MaxAttempts != 3 {
		t.Errorf("Recorder.MaxAttempts = %d, want 3", cfg.Recorder.MaxAttempts)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CATCHAT_SERVER_PORT", "7000")
	t.Setenv("CATCHAT_LLM_OPENAI_API_KEY", "sk-env")
	t.Setenv("VISUAL_CROSSING_API_KEY", "vc-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.LLM.OpenAI.APIKey != "sk-env" {
		t.Errorf("LLM.OpenAI.APIKey = %q, want sk-env", cfg.LLM.OpenAI.APIKey)
	}
	if cfg.Weather.APIKey != "vc-key" {
		t.Errorf("Weather.APIKey = %q, want vc-key", cfg.Weather.APIKey)
	}
	if cfg.Speech.APIKey != "sk-env" {
		t.Errorf("Speech.APIKey = %q, want it to follow the OpenAI key", cfg.Speech.APIKey)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed JSON")
	}
}

// =============================================================================
// Save Tests
// =============================================================================

func TestSave_StripsSecrets(t *testing.T) {
	cfg := Default()
	cfg.LLM.OpenAI.APIKey = "sk-secret"
	cfg.Weather.APIKey = "vc-secret"

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}

	var saved Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("saved config is not valid JSON: %v", err)
	}
	if saved.LLM.OpenAI.APIKey != "" || saved.Weather.APIKey != "" {
		t.Error("Save() must not persist API keys")
	}
	if cfg.LLM.OpenAI.APIKey != "sk-secret" {
		t.Error("Save() must not mutate the receiver")
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Default()
	cfg.Server.Port = 8123
	cfg.Recorder.Backoff = 250 * time.Millisecond

	path := filepath.Join(t.TempDir(), "config.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != 8123 {
		t.Errorf("Server.Port = %d, want 8123", loaded.Server.Port)
	}
	if loaded.Recorder.Backoff != 250*time.Millisecond {
		t.Errorf("Recorder.Backoff = %v, want 250ms", loaded.Recorder.Backoff)
	}
}
