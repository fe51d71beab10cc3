// Package vision wraps an external DeepFace-compatible face-analysis service
// to produce the per-turn emotion signal.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sentio-ai/sentio/backend/internal/model/therapy"
	"github.com/sentio-ai/sentio/backend/pkg/degrade"
)

// Config describes the analysis service endpoint and requested signals.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	IncludeAgeGender bool
}

// Analyzer calls the face-analysis service. It never fails upward: the
// pipeline always needs some emotion value, so any error degrades to the
// neutral analysis.
type Analyzer struct {
	cfg        Config
	httpClient *http.Client
	logger     *log.Logger
}

// NewAnalyzer creates a client for the configured analysis service.
func NewAnalyzer(cfg Config, logger *log.Logger) *Analyzer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Analyzer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type analyzeRequest struct {
	Image   string   `json:"img"`
	Actions []string `json:"actions"`
}

type analyzeResponse struct {
	Results []struct {
		DominantEmotion   string   `json:"dominant_emotion"`
		Age               *int     `json:"age"`
		DominantGender    *string  `json:"dominant_gender"`
		GenderProbability *float64 `json:"gender_probability"`
	} `json:"results"`
}

// Analyze reads the image at imagePath and asks the service for its dominant
// emotion, plus age/gender when configured. All failures return the neutral
// fallback with the cause attached.
func (a *Analyzer) Analyze(ctx context.Context, imagePath string) degrade.Value[therapy.FaceAnalysis] {
	result, err := a.analyze(ctx, imagePath)
	if err != nil {
		a.logger.Warn("face analysis degraded to neutral", "image", imagePath, "error", err)
		return degrade.Fallback(therapy.NeutralFace(), err)
	}
	return degrade.Ok(result)
}

func (a *Analyzer) analyze(ctx context.Context, imagePath string) (therapy.FaceAnalysis, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return therapy.FaceAnalysis{}, fmt.Errorf("read image: %w", err)
	}

	actions := []string{"emotion"}
	if a.cfg.IncludeAgeGender {
		actions = append(actions, "age", "gender")
	}

	payload, err := json.Marshal(analyzeRequest{
		Image:   base64.StdEncoding.EncodeToString(raw),
		Actions: actions,
	})
	if err != nil {
		return therapy.FaceAnalysis{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return therapy.FaceAnalysis{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return therapy.FaceAnalysis{}, fmt.Errorf("call analysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return therapy.FaceAnalysis{}, fmt.Errorf("analysis service returned status %d", resp.StatusCode)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return therapy.FaceAnalysis{}, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Results) == 0 || decoded.Results[0].DominantEmotion == "" {
		return therapy.FaceAnalysis{}, fmt.Errorf("no face detected")
	}

	first := decoded.Results[0]
	analysis := therapy.FaceAnalysis{Emotion: first.DominantEmotion}
	if a.cfg.IncludeAgeGender {
		analysis.Age = first.Age
		analysis.Gender = first.DominantGender
		if first.GenderProbability != nil {
			rounded := math.Round(*first.GenderProbability*100) / 100
			analysis.GenderProbability = &rounded
		}
	}
	return analysis, nil
}
