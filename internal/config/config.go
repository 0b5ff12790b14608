// Package config handles Catchat configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Persistence
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// Services
	LLM     LLMConfig     `json:"llm" mapstructure:"llm"`
	Weather WeatherConfig `json:"weather" mapstructure:"weather"`
	Geo     GeoConfig     `json:"geo" mapstructure:"geo"`
	Speech  SpeechConfig  `json:"speech" mapstructure:"speech"`

	// Recording
	Recorder RecorderConfig `json:"recorder" mapstructure:"recorder"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig for HTTP server
type ServerConfig struct {
	Port           int      `json:"port" mapstructure:"port"`
	Host           string   `json:"host" mapstructure:"host"`
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// DatabaseConfig for the SQLite store
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"` // empty means <data_dir>/catchat.db
}

// LLMConfig selects and configures completion providers
type LLMConfig struct {
	Provider    string        `json:"provider" mapstructure:"provider"` // openai, claude or ollama
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"`
	Fallback    bool          `json:"fallback" mapstructure:"fallback"` // try other configured providers on failure

	OpenAI OpenAIConfig `json:"openai" mapstructure:"openai"`
	Claude ClaudeConfig `json:"claude" mapstructure:"claude"`
	Ollama OllamaConfig `json:"ollama" mapstructure:"ollama"`
}

// OpenAIConfig for any OpenAI-compatible chat completions endpoint
type OpenAIConfig struct {
	APIKey  string `json:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	Model   string `json:"model" mapstructure:"model"`
}

// ClaudeConfig for Claude API
type ClaudeConfig struct {
	APIKey string `json:"api_key" mapstructure:"api_key"`
	Model  string `json:"model" mapstructure:"model"`
}

// OllamaConfig for local LLM
type OllamaConfig struct {
	URL   string `json:"url" mapstructure:"url"`
	Model string `json:"model" mapstructure:"model"`
}

// WeatherConfig for the weather data provider
type WeatherConfig struct {
	APIKey          string        `json:"api_key" mapstructure:"api_key"`
	BaseURL         string        `json:"base_url" mapstructure:"base_url"`
	ServiceURL      string        `json:"service_url" mapstructure:"service_url"` // remote weather API; overrides the direct provider
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`
	DefaultLocation string        `json:"default_location" mapstructure:"default_location"`
}

// GeoConfig for IP geolocation
type GeoConfig struct {
	BaseURL string        `json:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// SpeechConfig for speech-to-text and text-to-speech
type SpeechConfig struct {
	BaseURL  string `json:"base_url" mapstructure:"base_url"`
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	STTModel string `json:"stt_model" mapstructure:"stt_model"`
	TTSModel string `json:"tts_model" mapstructure:"tts_model"`
	Voice    string `json:"voice" mapstructure:"voice"`
}

// RecorderConfig for chat history persistence
type RecorderConfig struct {
	MaxAttempts   int           `json:"max_attempts" mapstructure:"max_attempts"`
	Backoff       time.Duration `json:"backoff" mapstructure:"backoff"`
	DefaultUserID int64         `json:"default_user_id" mapstructure:"default_user_id"`
}

// LoggingConfig for log output
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	JSON  bool   `json:"json" mapstructure:"json"`
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir: filepath.Join(home, ".catchat"),
		Server: ServerConfig{
			Port:           8001,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"https://www.qcatchat.com", "https://qcatchat.com"},
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Timeout:     15 * time.Second,
			Temperature: 0.7,
			MaxTokens:   1000,
			Fallback:    true,
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: "https://api.openai.com",
				Model:   "gpt-4-turbo",
			},
			Claude: ClaudeConfig{
				APIKey: os.Getenv("ANTHROPIC_API_KEY"),
				Model:  "claude-sonnet-4-20250514",
			},
			Ollama: OllamaConfig{
				URL:   "http://localhost:11434",
				Model: "llama3.2",
			},
		},
		Weather: WeatherConfig{
			APIKey:          os.Getenv("VISUAL_CROSSING_API_KEY"),
			BaseURL:         "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline",
			Timeout:         10 * time.Second,
			DefaultLocation: "New York, NY",
		},
		Geo: GeoConfig{
			BaseURL: "http://ip-api.com/json",
			Timeout: 5 * time.Second,
		},
		Speech: SpeechConfig{
			BaseURL:  "https://api.openai.com",
			APIKey:   os.Getenv("OPENAI_API_KEY"),
			STTModel: "whisper-1",
			TTSModel: "tts-1",
			Voice:    "alloy",
		},
		Recorder: RecorderConfig{
			MaxAttempts:   3,
			Backoff:       500 * time.Millisecond,
			DefaultUserID: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DatabasePath resolves the SQLite file location.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.DataDir, "catchat.db")
}

// Load loads config from file, falling back to defaults. Any key can be
// overridden from the environment as CATCHAT_<SECTION>_<KEY>, for example
// CATCHAT_LLM_OPENAI_API_KEY or CATCHAT_SERVER_PORT.
func Load(path string) (*Config, error) {
	defaults := Default()

	if path == "" {
		path = filepath.Join(defaults.DataDir, "config.json")
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("CATCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, defaults)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnvFallbacks()
	return cfg, nil
}

// setDefaults registers every known key so AutomaticEnv can override keys
// that are absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_dir", d.DataDir)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.fallback", d.LLM.Fallback)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.base_url", d.LLM.OpenAI.BaseURL)
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.claude.api_key", "")
	v.SetDefault("llm.claude.model", d.LLM.Claude.Model)
	v.SetDefault("llm.ollama.url", d.LLM.Ollama.URL)
	v.SetDefault("llm.ollama.model", d.LLM.Ollama.Model)

	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", d.Weather.BaseURL)
	v.SetDefault("weather.service_url", d.Weather.ServiceURL)
	v.SetDefault("weather.timeout", d.Weather.Timeout)
	v.SetDefault("weather.default_location", d.Weather.DefaultLocation)

	v.SetDefault("geo.base_url", d.Geo.BaseURL)
	v.SetDefault("geo.timeout", d.Geo.Timeout)

	v.SetDefault("speech.base_url", d.Speech.BaseURL)
	v.SetDefault("speech.api_key", "")
	v.SetDefault("speech.stt_model", d.Speech.STTModel)
	v.SetDefault("speech.tts_model", d.Speech.TTSModel)
	v.SetDefault("speech.voice", d.Speech.Voice)

	v.SetDefault("recorder.max_attempts", d.Recorder.MaxAttempts)
	v.SetDefault("recorder.backoff", d.Recorder.Backoff)
	v.SetDefault("recorder.default_user_id", d.Recorder.DefaultUserID)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.json", d.Logging.JSON)
}

// applyEnvFallbacks fills secrets from the conventional provider variables
// when neither the file nor a CATCHAT_ variable set them.
func (c *Config) applyEnvFallbacks() {
	if c.LLM.OpenAI.APIKey == "" {
		c.LLM.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.Claude.APIKey == "" {
		c.LLM.Claude.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Weather.APIKey == "" {
		c.Weather.APIKey = os.Getenv("VISUAL_CROSSING_API_KEY")
	}
	if c.Speech.APIKey == "" {
		c.Speech.APIKey = c.LLM.OpenAI.APIKey
	}
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	// Secrets stay in the environment
	safeCfg := *c
	safeCfg.LLM.OpenAI.APIKey = ""
	safeCfg.LLM.Claude.APIKey = ""
	safeCfg.Weather.APIKey = ""
	safeCfg.Speech.APIKey = ""

	data, err := json.MarshalIndent(safeCfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
