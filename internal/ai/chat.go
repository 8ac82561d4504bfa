package ai

import "context"

// Chat binds the client to one chat configuration so callers do not carry
// provider settings around.
type Chat struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewChat(client *OpenAICompatibleClient, cfg ChatConfig) *Chat {
	return &Chat{client: client, cfg: cfg}
}

func (c *Chat) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return c.client.Complete(ctx, c.cfg, messages)
}
