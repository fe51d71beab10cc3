// Package therapy coordinates one conversation turn end to end: emotion
// extraction, context retrieval, response generation, history bookkeeping
// and speech synthesis.
package therapy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sentio-ai/sentio/backend/internal/history"
	"github.com/sentio-ai/sentio/backend/internal/model/therapy"
	"github.com/sentio-ai/sentio/backend/pkg/degrade"
)

// ErrNoQuery marks the normal outcome of a turn that carried neither text
// nor transcribable audio. It is not a pipeline failure.
var ErrNoQuery = errors.New("no query provided")

// Stages that can fail a turn.
const (
	StageTranscription = "transcription"
	StageGeneration    = "generation"
)

// StageError identifies which pipeline stage aborted the turn.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FaceAnalyzer produces the emotion signal for an image. It never fails:
// degraded results carry the neutral default plus the cause.
type FaceAnalyzer interface {
	Analyze(ctx context.Context, imagePath string) degrade.Value[therapy.FaceAnalysis]
}

// ContextRetriever returns a non-empty, bounded set of search context.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, maxResults int) []therapy.SearchResult
}

// Generator produces the therapeutic reply and the first-impression
// greeting. Failures here are turn-fatal.
type Generator interface {
	Generate(ctx context.Context, pc therapy.PromptContext) (string, error)
	GenerateGreeting(ctx context.Context, analysis therapy.FaceAnalysis) (string, error)
}

// Transcriber converts an audio file into a text query.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer turns reply text into an audio clip on disk.
type Synthesizer interface {
	Speak(ctx context.Context, text string) (string, error)
}

// Options is the capability set that collapses the original near-duplicate
// bot variants into one orchestrator.
type Options struct {
	EnableSearch         bool
	EnableAgeGender      bool
	EnableHistoryContext bool
	HistoryWindow        int
	SearchResults        int
}

// TurnInput is one user turn: any combination of text, image and audio.
type TurnInput struct {
	Text      string
	ImagePath string
	AudioPath string
}

// Orchestrator sequences the collaborators for each turn. The transcriber
// and synthesizer are optional; a nil synthesizer simply means turns succeed
// without audio.
type Orchestrator struct {
	store       *history.Store
	faces       FaceAnalyzer
	retriever   ContextRetriever
	generator   Generator
	transcriber Transcriber
	synthesizer Synthesizer
	opts        Options
	logger      *log.Logger
}

// NewOrchestrator wires the per-turn pipeline.
func NewOrchestrator(store *history.Store, faces FaceAnalyzer, retriever ContextRetriever, generator Generator, transcriber Transcriber, synthesizer Synthesizer, opts Options, logger *log.Logger) *Orchestrator {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 5
	}
	if opts.SearchResults <= 0 {
		opts.SearchResults = 3
	}

	return &Orchestrator{
		store:       store,
		faces:       faces,
		retriever:   retriever,
		generator:   generator,
		transcriber: transcriber,
		synthesizer: synthesizer,
		opts:        opts,
		logger:      logger,
	}
}

// ProcessTurn runs one turn through the pipeline. It returns ErrNoQuery when
// no text query could be established, a *StageError for turn-fatal failures,
// and a populated response otherwise. Appended turns are never rolled back.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (therapy.Response, error) {
	emotion := degrade.Ok(therapy.NeutralFace())
	if in.ImagePath != "" {
		emotion = o.faces.Analyze(ctx, in.ImagePath)
		if emotion.Degraded() {
			o.logger.Info("emotion analysis degraded", "cause", emotion.Cause)
		}
	}

	query := strings.TrimSpace(in.Text)
	if in.AudioPath != "" {
		if o.transcriber == nil {
			return therapy.Response{}, &StageError{Stage: StageTranscription, Err: errors.New("transcription unavailable")}
		}
		transcript, err := o.transcriber.Transcribe(ctx, in.AudioPath)
		if err != nil {
			return therapy.Response{}, &StageError{Stage: StageTranscription, Err: err}
		}
		query = strings.TrimSpace(transcript)
	}

	if query == "" {
		return therapy.Response{}, ErrNoQuery
	}

	// The user turn is persisted before generation so any history read from
	// here on, including the generator's own suffix, sees it.
	if err := o.store.Append(therapy.NewTurn(therapy.SpeakerUser, query)); err != nil {
		o.logger.Warn("history persist failed for user turn", "error", err)
	}

	var searchResults []therapy.SearchResult
	if o.opts.EnableSearch {
		searchResults = o.retriever.Retrieve(ctx, query, o.opts.SearchResults)
	}

	var suffix []therapy.Turn
	if o.opts.EnableHistoryContext {
		suffix = o.store.Recent(o.opts.HistoryWindow)
	}

	text, err := o.generator.Generate(ctx, therapy.PromptContext{
		Query:         query,
		Emotion:       emotion.V.Emotion,
		History:       suffix,
		SearchResults: searchResults,
	})
	if err != nil {
		return therapy.Response{}, &StageError{Stage: StageGeneration, Err: err}
	}

	if err := o.store.Append(therapy.NewTurn(therapy.SpeakerAssistant, text)); err != nil {
		o.logger.Warn("history persist failed for assistant turn", "error", err)
	}

	response := therapy.Response{TextResponse: text}
	if in.ImagePath != "" {
		analysis := emotion.V
		response.FaceAnalysis = &analysis
	}

	// Synthesis failure is non-fatal: the turn still succeeds without audio.
	if o.synthesizer != nil {
		clip, err := o.synthesizer.Speak(ctx, text)
		if err != nil {
			o.logger.Warn("speech synthesis failed", "error", err)
		} else {
			response.AudioResponse = clip
		}
	}

	return response, nil
}

// FirstImpression analyzes a session-opening image and, best-effort,
// generates and speaks a greeting. Greeting or synthesis failures degrade to
// an analysis-only impression rather than failing the capture.
func (o *Orchestrator) FirstImpression(ctx context.Context, imagePath string) therapy.Impression {
	analysis := o.faces.Analyze(ctx, imagePath)
	impression := therapy.Impression{Analysis: analysis.V}

	greeting, err := o.generator.GenerateGreeting(ctx, analysis.V)
	if err != nil {
		o.logger.Warn("greeting generation failed", "error", err)
		return impression
	}
	impression.TextResponse = greeting

	if err := o.store.Append(therapy.NewTurn(therapy.SpeakerAssistant, greeting)); err != nil {
		o.logger.Warn("history persist failed for greeting", "error", err)
	}

	if o.synthesizer != nil {
		clip, err := o.synthesizer.Speak(ctx, greeting)
		if err != nil {
			o.logger.Warn("greeting synthesis failed", "error", err)
		} else {
			impression.AudioResponse = clip
		}
	}

	return impression
}
