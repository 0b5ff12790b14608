package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/qcatchat/catchat/internal/agent"
	"github.com/qcatchat/catchat/internal/config"
	"github.com/qcatchat/catchat/internal/intent"
	"github.com/qcatchat/catchat/internal/llm"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/quantum"
	"github.com/qcatchat/catchat/internal/recorder"
	"github.com/qcatchat/catchat/internal/speech"
	"github.com/qcatchat/catchat/internal/storage"
	"github.com/qcatchat/catchat/internal/weather"
)

// components holds everything the serve and chat commands share.
type components struct {
	db      *storage.DB
	router  *llm.Router
	weather weather.Provider
	speech  *speech.Client
	agent   *agent.Agent
}

// loadConfig reads the config file and applies the logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	logging.SetJSON(cfg.Logging.JSON || !term.IsTerminal(int(os.Stderr.Fd())))
	return cfg, nil
}

// openDB opens the configured database and applies pending migrations.
func openDB(cfg *config.Config) (*storage.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	applied, err := db.Migrate()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	for _, name := range applied {
		logging.Info("applied migration %s", name)
	}
	return db, nil
}

func newLLMRouter(cfg config.LLMConfig) *llm.Router {
	rc := llm.RouterConfig{
		Primary:        llm.ParseProvider(cfg.Provider),
		EnableFallback: cfg.Fallback,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
	}

	if cfg.OpenAI.APIKey != "" {
		rc.OpenAI = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.Timeout,
		})
	}
	if cfg.Claude.APIKey != "" {
		rc.Claude = llm.NewClient(llm.Config{
			APIKey:  cfg.Claude.APIKey,
			Model:   cfg.Claude.Model,
			Timeout: cfg.Timeout,
		})
	}
	if cfg.Ollama.URL != "" {
		rc.Ollama = llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: cfg.Ollama.URL,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.Timeout,
		})
	}

	router := llm.NewRouter(rc)
	for provider, ok := range router.HealthCheck() {
		if ok {
			logging.Info("completion provider %s configured", provider)
		}
	}
	return router
}

// newWeatherProvider prefers the remote weather service when one is
// configured, else calls Visual Crossing directly.
func newWeatherProvider(cfg config.WeatherConfig) weather.Provider {
	if cfg.ServiceURL != "" {
		logging.Info("using weather service at %s", cfg.ServiceURL)
		return weather.NewServiceClient(cfg.ServiceURL, 0)
	}
	vc := weather.NewVisualCrossing(weather.VisualCrossingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if !vc.IsConfigured() {
		return nil
	}
	return vc
}

// buildComponents wires the request router over an open database.
func buildComponents(cfg *config.Config) (*components, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	router := newLLMRouter(cfg.LLM)
	if !router.IsConfigured() {
		logging.Warn("no completion provider configured; replies will use fallback text")
	}
	guard := llm.NewGuard(router, cfg.LLM.Timeout)

	provider := newWeatherProvider(cfg.Weather)
	if provider == nil {
		logging.Warn("weather provider not configured; weather questions go to generic chat")
	}

	rec := recorder.New(storage.NewChatStore(db), storage.NewUserStore(db), recorder.Config{
		MaxAttempts:   cfg.Recorder.MaxAttempts,
		Backoff:       cfg.Recorder.Backoff,
		DefaultUserID: cfg.Recorder.DefaultUserID,
	})

	c := &components{
		db:      db,
		router:  router,
		weather: provider,
		speech: speech.NewClient(speech.Config{
			APIKey:   cfg.Speech.APIKey,
			BaseURL:  cfg.Speech.BaseURL,
			STTModel: cfg.Speech.STTModel,
			TTSModel: cfg.Speech.TTSModel,
			Voice:    cfg.Speech.Voice,
		}),
	}

	c.agent = agent.New(agent.Config{
		Weather: provider,
		Locator: weather.NewLocator(weather.LocatorConfig{
			BaseURL:         cfg.Geo.BaseURL,
			DefaultLocation: cfg.Weather.DefaultLocation,
			Timeout:         cfg.Geo.Timeout,
		}),
		Matcher:  intent.NewMatcher(storage.NewIntentStore(db)),
		Quantum:  quantum.NewHandler(storage.NewQuantumStore(db), guard),
		Guard:    guard,
		Recorder: rec,
	})

	return c, nil
}

func (c *components) Close() error {
	return c.db.Close()
}
