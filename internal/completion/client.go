// Package completion sends chat turns to an OpenAI-compatible
// chat-completions endpoint using a caller-supplied API key.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/kuitang/agent-dashboard/internal/logutil"
	"github.com/kuitang/agent-dashboard/internal/obs"
)

const (
	DefaultModel = "gpt-4o-mini"
	// WindowSize is how many prior turns accompany each request.
	WindowSize  = 10
	Temperature = 0.7
	MaxTokens   = 500

	SystemPrompt = "You are a helpful AI assistant inside a personal productivity dashboard. " +
		"You help the user manage tasks, take notes, and answer questions. Keep answers concise and friendly."
)

// ErrCompletionFailed covers every way a completion can fail: transport,
// non-2xx status, or a response without usable content.
var ErrCompletionFailed = errors.New("completion failed")

// Role is the speaker of a turn as the endpoint understands it.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message in the context window.
type Turn struct {
	Role Role
	Text string
}

// Window returns the last n turns of history.
func Window(history []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]Turn, len(history))
	copy(out, history)
	return out
}

// Completer produces one assistant reply.
type Completer interface {
	Complete(ctx context.Context, apiKey string, history []Turn, text string) (string, error)
}

// Config configures a Client.
type Config struct {
	BaseURL string // empty means the SDK default
	Model   string
}

// Client is a Completer backed by openai-go.
type Client struct {
	client openai.Client
	model  string
}

// New builds a Client. The key is supplied per call, so none is configured here.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: openai.NewClient(opts...), model: model}
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.model }

func (c *Client) params(history []Turn, text string) openai.ChatCompletionNewParams {
	window := Window(history, WindowSize)
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(window)+2)
	msgs = append(msgs, openai.SystemMessage(SystemPrompt))
	for _, t := range window {
		if t.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(t.Text))
		} else {
			msgs = append(msgs, openai.UserMessage(t.Text))
		}
	}
	msgs = append(msgs, openai.UserMessage(text))
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(Temperature),
		MaxTokens:   openai.Int(MaxTokens),
	}
}

// Complete sends the system prompt, the last WindowSize turns of history and
// text, and returns the top choice's content.
func (c *Client) Complete(ctx context.Context, apiKey string, history []Turn, text string) (string, error) {
	logger := obs.From(ctx).With("pkg", "completion", "model", c.model, "api_key", logutil.MaskSecret(apiKey))
	start := time.Now()

	resp, err := c.client.Chat.Completions.New(ctx, c.params(history, text), option.WithAPIKey(apiKey))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			logger.Warn("completion_http_error", "status", apiErr.StatusCode, "duration_ms", time.Since(start).Milliseconds())
			return "", fmt.Errorf("%w: status %d", ErrCompletionFailed, apiErr.StatusCode)
		}
		logger.Warn("completion_transport_error", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	if len(resp.Choices) == 0 {
		logger.Warn("completion_empty_choices")
		return "", fmt.Errorf("%w: no choices", ErrCompletionFailed)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		logger.Warn("completion_empty_content")
		return "", fmt.Errorf("%w: empty content", ErrCompletionFailed)
	}
	logger.Info("completion_ok",
		"duration_ms", time.Since(start).Milliseconds(),
		"history_turns", min(len(history), WindowSize),
		"reply_preview", logutil.TruncateForLog(content, 80),
	)
	return content, nil
}
