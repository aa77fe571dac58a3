package anthropic

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"autoreply/models"
)

// generationTimeout bounds a single generation call independently of the
// caller's dispatch timeout, so a slow model never eats the whole budget.
const generationTimeout = 20 * time.Second

// AnthropicClient implements the clients.GenerationClient interface
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// GenerateReply produces a reply continuing the given conversation turns.
// maxLength is in characters; the token budget is derived from it.
func (c *AnthropicClient) GenerateReply(
	ctx context.Context,
	systemPrompt string,
	turns []models.ConversationTurn,
	maxLength int,
) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("cannot generate reply without conversation turns")
	}

	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, turn := range turns {
		block := anthropic.NewTextBlock(turn.Text)
		if turn.Role == models.ConversationRoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := int64(maxLength / 3)
	if maxTokens < 256 {
		maxTokens = 256
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		sb.WriteString(block.Text)
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", fmt.Errorf("generation returned empty reply")
	}

	log.Printf("✅ Generated reply of %d characters", len(reply))
	return reply, nil
}
