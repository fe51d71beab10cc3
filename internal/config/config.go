package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the backend needs.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Speech  SpeechConfig
	Vision  VisionConfig
	Search  SearchConfig
	History HistoryConfig
	Data    DataConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	vision, err := loadVisionConfig()
	if err != nil {
		return nil, err
	}

	search, err := loadSearchConfig()
	if err != nil {
		return nil, err
	}

	history, err := loadHistoryConfig()
	if err != nil {
		return nil, err
	}

	data := DataConfig{Dir: getEnvOrDefault("DATA_DIR", "data")}

	return &Config{
		Server:  server,
		AI:      ai,
		Speech:  speech,
		Vision:  vision,
		Search:  search,
		History: history,
		Data:    data,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the language-model connection.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the configured model instance.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SpeechConfig describes the Deepgram connection.
type SpeechConfig struct {
	APIKey   string
	BaseURL  string
	TTSModel string
	STTModel string
	Timeout  time.Duration
}

// Enabled reports whether speech features can be offered.
func (c SpeechConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("DEEPGRAM_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return SpeechConfig{
		APIKey:   strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
		BaseURL:  getEnvOrDefault("DEEPGRAM_BASE_URL", "https://api.deepgram.com"),
		TTSModel: getEnvOrDefault("DEEPGRAM_TTS_MODEL", "aura-asteria-en"),
		STTModel: getEnvOrDefault("DEEPGRAM_STT_MODEL", "nova-2"),
		Timeout:  time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// VisionConfig describes the face-analysis service.
type VisionConfig struct {
	BaseURL         string
	Timeout         time.Duration
	EnableAgeGender bool
}

// Enabled reports whether image analysis can be offered.
func (c VisionConfig) Enabled() bool {
	return c.BaseURL != ""
}

func loadVisionConfig() (VisionConfig, error) {
	timeout, err := parseOptionalIntEnv("VISION_TIMEOUT")
	if err != nil {
		return VisionConfig{}, err
	}
	timeoutSeconds := 10
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	ageGender, err := parseBoolEnv("ENABLE_AGE_GENDER", false)
	if err != nil {
		return VisionConfig{}, err
	}

	return VisionConfig{
		BaseURL:         strings.TrimRight(strings.TrimSpace(os.Getenv("VISION_BASE_URL")), "/"),
		Timeout:         time.Duration(timeoutSeconds) * time.Second,
		EnableAgeGender: ageGender,
	}, nil
}

// SearchConfig controls the web-search augmentation.
type SearchConfig struct {
	Enabled    bool
	MaxResults int
	Timeout    time.Duration
}

func loadSearchConfig() (SearchConfig, error) {
	enabled, err := parseBoolEnv("ENABLE_SEARCH", true)
	if err != nil {
		return SearchConfig{}, err
	}

	maxResults := 3
	if override, err := parseOptionalIntEnv("SEARCH_MAX_RESULTS"); err != nil {
		return SearchConfig{}, err
	} else if override != nil && *override >= 1 {
		maxResults = *override
	}

	timeout, err := parseOptionalIntEnv("SEARCH_TIMEOUT")
	if err != nil {
		return SearchConfig{}, err
	}
	timeoutSeconds := 10
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return SearchConfig{
		Enabled:    enabled,
		MaxResults: maxResults,
		Timeout:    time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// HistoryConfig controls the conversation log.
type HistoryConfig struct {
	Path           string
	Window         int
	ContextEnabled bool
}

func loadHistoryConfig() (HistoryConfig, error) {
	contextEnabled, err := parseBoolEnv("ENABLE_HISTORY_CONTEXT", true)
	if err != nil {
		return HistoryConfig{}, err
	}

	window := 5
	if override, err := parseOptionalIntEnv("HISTORY_WINDOW"); err != nil {
		return HistoryConfig{}, err
	} else if override != nil && *override >= 1 {
		window = *override
	}

	return HistoryConfig{
		Path:           getEnvOrDefault("HISTORY_FILE", "data/chat_history.json"),
		Window:         window,
		ContextEnabled: contextEnabled,
	}, nil
}

// DataConfig anchors on-disk artifacts: uploads, clips, captures.
type DataConfig struct {
	Dir string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
