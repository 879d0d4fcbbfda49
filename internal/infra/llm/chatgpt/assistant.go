package chatgpt

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/urbansims/microgreens/internal/domain/dashboard"
	"github.com/urbansims/microgreens/pkg/metrics"
)

// Assistant adapts the ChatGPT client to the dashboard assistant capability.
type Assistant struct {
	client          *Client
	model           string
	tokenizer       Tokenizer
	maxPromptTokens int
	logger          *slog.Logger

	mu    sync.Mutex
	usage metrics.TokenUsage
}

// NewAssistant constructs the adapter. tokenizer may be nil to disable prompt trimming.
func NewAssistant(client *Client, model string, tokenizer Tokenizer, maxPromptTokens int, logger *slog.Logger) *Assistant {
	return &Assistant{
		client:          client,
		model:           model,
		tokenizer:       tokenizer,
		maxPromptTokens: maxPromptTokens,
		logger:          logger.With("component", "chatgpt.assistant"),
	}
}

// Chat sends the prompt as a single user message.
func (a *Assistant) Chat(ctx context.Context, prompt string, opts dashboard.ChatOptions) (string, error) {
	prompt, tokens, trimmed := TrimToBudget(a.tokenizer, prompt, a.maxPromptTokens)
	if trimmed {
		a.logger.Debug("prompt trimmed to budget", "tokens", tokens)
	}
	req := ChatCompletionRequest{
		Model:       a.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    make([]Message, 0, 2),
	}
	if system := strings.TrimSpace(opts.System); system != "" {
		req.Messages = append(req.Messages, Message{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, Message{Role: "user", Content: prompt})

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	a.record(resp.Usage)
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Usage returns the accumulated token usage.
func (a *Assistant) Usage() metrics.TokenUsage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

func (a *Assistant) record(u Usage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.usage = a.usage.Add(metrics.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	})
}

var _ dashboard.Assistant = (*Assistant)(nil)
