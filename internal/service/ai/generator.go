// Package ai generates the therapeutic reply: it assembles the structured
// prompt for one turn and invokes the language model once, returning the
// completion verbatim.
package ai

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sentio-ai/sentio/backend/internal/model/therapy"
)

// Service invokes the chat model through a compiled prompt chain.
type Service struct {
	chatModel model.BaseChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	logger    *log.Logger
}

// NewService compiles the prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, logger *log.Logger) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		logger:    logger,
	}, nil
}

// GetChatModel exposes the underlying model so other components (query
// summarization, greeting generation) can reuse the same instance.
func (s *Service) GetChatModel() model.BaseChatModel {
	return s.chatModel
}

// Generate runs one completion for the turn context. Model failure is not
// swallowed here: a missing reply is a turn-level failure, unlike the
// best-effort sub-steps feeding into pc.
func (s *Service) Generate(ctx context.Context, pc therapy.PromptContext) (string, error) {
	input := map[string]any{
		"system": TherapistSystemPrompt,
		"prompt": BuildPrompt(pc),
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	s.logger.Debug("generated response", "emotion", pc.Emotion, "length", len(response.Content))
	return response.Content, nil
}

// GenerateGreeting produces the session-opening message for a first
// impression, tailored to the face analysis.
func (s *Service) GenerateGreeting(ctx context.Context, analysis therapy.FaceAnalysis) (string, error) {
	input := map[string]any{
		"system": TherapistSystemPrompt,
		"prompt": BuildGreetingPrompt(analysis),
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to generate greeting: %w", err)
	}
	return response.Content, nil
}
