// Package avatar creates video avatar conversations on the Tavus API.
package avatar

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://tavusapi.com"
	userAgent = "spigell/ai-interviewer"

	maxContextRunes = 500
)

// Config for the avatar client.
type Config struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	ReplicaID  string `mapstructure:"replica-id"`
	APIURL     string `mapstructure:"api-url"`
}

// Conversation is a created avatar conversation.
type Conversation struct {
	ID  string `json:"conversation_id"`
	URL string `json:"conversation_url"`
}

type Client struct {
	token     string
	replicaID string
	logger    *zap.Logger

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token, replicaID string) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("avatar api key is required")
	}
	if strings.TrimSpace(replicaID) == "" {
		return nil, errors.New("avatar replica id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:     token,
		replicaID: replicaID,
		APIURL:    apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}, nil
}

// CreateConversation opens a conversation primed with the beginning of the resume analysis.
func (c *Client) CreateConversation(ctx context.Context, resumeAnalysis string) (*Conversation, error) {
	return c.createConversation(ctx, resumeAnalysis)
}

func conversationalContext(resumeAnalysis string) string {
	runes := []rune(resumeAnalysis)
	if len(runes) > maxContextRunes {
		runes = runes[:maxContextRunes]
	}
	return "You are conducting a technical interview. Here is the candidate analysis: " + string(runes)
}
