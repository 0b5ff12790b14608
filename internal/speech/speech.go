// Package speech converts between audio and text using an OpenAI-compatible
// audio API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
)

// OpenAI TTS voices
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

var voices = map[string]bool{
	VoiceAlloy: true, VoiceEcho: true, VoiceFable: true,
	VoiceOnyx: true, VoiceNova: true, VoiceShimmer: true,
}

// MaxTextLength is the longest input the speech endpoint accepts.
const MaxTextLength = 4096

// Config for the speech client
type Config struct {
	APIKey   string
	BaseURL  string        // API root, without /v1
	STTModel string        // default whisper-1
	TTSModel string        // default tts-1
	Voice    string        // default alloy
	Timeout  time.Duration // default 30s
}

// Client handles transcription and synthesis calls
type Client struct {
	apiKey     string
	baseURL    string
	sttModel   string
	ttsModel   string
	voice      string
	httpClient *http.Client
}

// NewClient creates a new speech client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.STTModel == "" {
		cfg.STTModel = "whisper-1"
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = VoiceAlloy
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		sttModel: cfg.STTModel,
		ttsModel: cfg.TTSModel,
		voice:    cfg.Voice,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsConfigured checks if API key is set
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Transcribe uploads audio and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("%w: no API key", core.ErrSpeechUnavailable)
	}
	if filename == "" {
		filename = "audio.webm"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	n, err := io.Copy(part, audio)
	if err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: empty audio", core.ErrInvalidInput)
	}
	if err := writer.WriteField("model", c.sttModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrSpeechUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logging.Warn("transcription API error %d: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("%w: transcription status %d", core.ErrSpeechUnavailable, resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// Audio is a synthesized speech stream. Callers must close it.
type Audio struct {
	ContentType string
	Body        io.ReadCloser
}

// Synthesize converts text to speech. The returned body streams from the
// upstream response.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("%w: no API key", core.ErrSpeechUnavailable)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text", core.ErrMissingRequired)
	}
	if len(text) > MaxTextLength {
		return nil, fmt.Errorf("%w: text longer than %d characters", core.ErrInvalidInput, MaxTextLength)
	}

	voice = strings.ToLower(strings.TrimSpace(voice))
	if voice == "" {
		voice = c.voice
	}
	if !voices[voice] {
		return nil, fmt.Errorf("%w: unknown voice %q", core.ErrInvalidInput, voice)
	}

	body, err := json.Marshal(map[string]string{
		"model":           c.ttsModel,
		"input":           text,
		"voice":           voice,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSpeechUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logging.Warn("speech API error %d: %s", resp.StatusCode, string(msg))
		return nil, fmt.Errorf("%w: speech status %d", core.ErrSpeechUnavailable, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		contentType = "audio/mpeg"
	}
	return &Audio{ContentType: contentType, Body: resp.Body}, nil
}

// IsUnavailable reports whether err means the speech service could not be
// reached or refused the request.
func IsUnavailable(err error) bool {
	return errors.Is(err, core.ErrSpeechUnavailable)
}
