package commentary

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

const systemPrompt = "You are a professional financial analyst explaining technical stock analysis in clear, accessible language."

const userPromptTemplate = `You are a professional financial analyst providing clear, concise explanations of stock technical analysis.

Given the following stock analysis:

%s

Provide a brief (2-3 sentences), professional explanation of what this %s classification means for %s.
- Explain the technical situation in plain language
- Mention what investors should watch for
- Keep it actionable and easy to understand
- Do NOT provide investment advice, just explain the technical analysis
- Be specific about the indicators and what they mean

Format your response as a clear, concise explanation without bullet points or markdown. Start directly with the explanation.`

// OpenAIExplainer asks a chat completion model for commentary.
type OpenAIExplainer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIExplainer builds a client. baseURL may point at any compatible server.
func NewOpenAIExplainer(apiKey, modelName, baseURL string, timeout time.Duration) *OpenAIExplainer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	return &OpenAIExplainer{client: openai.NewClientWithConfig(cfg), model: modelName, timeout: timeout}
}

func (e *OpenAIExplainer) Explain(ctx context.Context, req Request) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptTemplate, buildContext(req), req.Regime, req.Ticker)},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCommentaryUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", model.ErrCommentaryUnavailable)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty answer", model.ErrCommentaryUnavailable)
	}
	return text, nil
}
