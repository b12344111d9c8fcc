package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
)

const (
	defaultModel      = "claude-sonnet-4-5"
	defaultMaxTokens  = 2048
	defaultMaxRetries = 3
)

type messageCreator interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client talks to the Anthropic Messages API.
type Client struct {
	messages messageCreator
	model    string
	logger   *zap.Logger
}

// NewClient builds a client. Transient failures are retried by the SDK itself.
func NewClient(apiKey, model string, maxRetries int, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := sdk.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(maxRetries))

	return &Client{
		messages: &client.Messages,
		model:    model,
		logger:   logger,
	}, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete implements ai.Completer.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	if c == nil || c.messages == nil {
		return "", errors.New("anthropic client is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", ai.ErrEmptyPrompt
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  append(toMessages(req.History), sdk.NewUserMessage(sdk.NewTextBlock(prompt))),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(float64(req.Temperature))
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	return responseText(msg)
}

func toMessages(history []ai.Message) []sdk.MessageParam {
	messages := make([]sdk.MessageParam, 0, len(history)+1)
	for _, msg := range history {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		if msg.Role == ai.RoleAssistant {
			messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(text)))
			continue
		}
		messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(text)))
	}
	return messages
}

func responseText(msg *sdk.Message) (string, error) {
	if msg == nil {
		return "", ai.ErrEmptyResponse
	}

	parts := make([]string, 0, len(msg.Content))
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}

	output := strings.Join(parts, "\n")
	if output == "" {
		return "", ai.ErrEmptyResponse
	}
	return output, nil
}
