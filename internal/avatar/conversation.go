package avatar

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type conversationRequest struct {
	ReplicaID             string `json:"replica_id"`
	ConversationalContext string `json:"conversational_context"`
}

func (c *Client) createConversation(ctx context.Context, resumeAnalysis string) (*Conversation, error) {
	url := fmt.Sprintf("%s/v2/conversations", c.APIURL)

	var conversation Conversation
	err := c.postJSON(ctx, url, conversationRequest{
		ReplicaID:             c.replicaID,
		ConversationalContext: conversationalContext(resumeAnalysis),
	}, &conversation)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	if conversation.URL == "" {
		return nil, errors.New("create conversation: empty conversation url in response")
	}

	c.logger.Debug("avatar conversation created", zap.String("conversation_id", conversation.ID))
	return &conversation, nil
}
