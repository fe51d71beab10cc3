// Package speech wraps the Deepgram REST API for speech synthesis and
// transcription.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	defaultBaseURL  = "https://api.deepgram.com"
	defaultTTSModel = "aura-asteria-en"
	defaultSTTModel = "nova-2"
)

// ErrEmptyTranscript is returned when Deepgram answered but produced no
// usable text for the audio.
var ErrEmptyTranscript = errors.New("empty transcript")

// Config describes the Deepgram connection and synthesis output location.
type Config struct {
	APIKey    string
	BaseURL   string
	TTSModel  string
	STTModel  string
	OutputDir string
	Timeout   time.Duration
}

// Client talks to Deepgram over its request/response REST endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient applies defaults and builds the REST client.
func NewClient(cfg Config, logger *log.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = defaultTTSModel
	}
	if cfg.STTModel == "" {
		cfg.STTModel = defaultSTTModel
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "data/audio"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Speak synthesizes text into a wav clip and returns the file path. Each
// clip gets a unique name so concurrent turns cannot clobber each other.
func (c *Client) Speak(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("model", c.cfg.TTSModel)
	params.Set("encoding", "linear16")
	params.Set("container", "wav")

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("encode speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/speak?"+params.Encode(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speak request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("speak returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(c.cfg.OutputDir, fmt.Sprintf("response_%s.wav", uuid.NewString()))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write clip: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close clip: %w", err)
	}

	c.logger.Debug("synthesized speech", "path", path, "chars", len(text))
	return path, nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe converts the audio file at audioPath into text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	params := url.Values{}
	params.Set("model", c.cfg.STTModel)
	params.Set("smart_format", "true")
	params.Set("punctuate", "true")
	params.Set("language", "en-US")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/listen?"+params.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("build listen request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("listen request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("listen returned status %d", resp.StatusCode)
	}

	var decoded listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}

	if len(decoded.Results.Channels) == 0 || len(decoded.Results.Channels[0].Alternatives) == 0 {
		return "", ErrEmptyTranscript
	}
	transcript := decoded.Results.Channels[0].Alternatives[0].Transcript
	if transcript == "" {
		return "", ErrEmptyTranscript
	}

	c.logger.Debug("transcribed audio", "path", audioPath, "chars", len(transcript))
	return transcript, nil
}
