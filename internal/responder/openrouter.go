// Package responder generates customer-facing text through an
// OpenAI-compatible chat completion API (OpenRouter by default).
package responder

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"aromabot/internal/domain"
)

const (
	DefaultAPIBase = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-3.5-turbo"
	defaultTimeout = 30 * time.Second
)

// OpenRouter implements domain.Responder with a fixed persona as the
// system message and the caller's prompt as the single user turn.
type OpenRouter struct {
	client    *openai.Client
	model     string
	persona   string
	maxTokens int
	logger    *slog.Logger
}

type Config struct {
	APIKey    string
	APIBase   string
	Model     string
	Persona   string
	MaxTokens int
	Timeout   time.Duration
	Logger    *slog.Logger
}

func New(cfg Config) *OpenRouter {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.APIBase, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenRouter{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		persona:   cfg.Persona,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

func (o *OpenRouter) Model() string { return o.model }

// Generate returns the first completion choice. Transport and API failures
// are UpstreamErrors; a response without usable text is a GenerationError.
func (o *OpenRouter) Generate(ctx context.Context, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if o.persona != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: o.persona,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return "", domain.Upstream("responder", err)
	}

	if len(resp.Choices) == 0 {
		return "", &domain.GenerationError{Reason: "no choices in response"}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &domain.GenerationError{Reason: "empty completion"}
	}

	o.logger.Debug("completion",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish", resp.Choices[0].FinishReason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
