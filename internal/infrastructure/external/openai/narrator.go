package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// Config holds narrator settings
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Narrator implements port.Narrator using OpenAI chat completions
type Narrator struct {
	client  *openai.Client
	model   string
	prompts *PromptConfig
	logger  *zap.Logger
}

var _ port.Narrator = (*Narrator)(nil)

// NewNarrator creates a new OpenAI narrator. A nil prompts uses DefaultPrompts.
func NewNarrator(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Narrator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Narrator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		prompts: prompts,
		logger:  logger,
	}
}

// Narrate writes a short summary of a report card
func (n *Narrator) Narrate(ctx context.Context, result *entity.ReportResult) (string, error) {
	p := &n.prompts.ReportNarrative
	user, err := p.Render(result)
	if err != nil {
		return "", err
	}

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		n.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	n.logger.Debug("Report narrative generated",
		zap.String("employee", result.EmployeeName),
		zap.Int("tokens", resp.Usage.TotalTokens))
	return summary, nil
}
