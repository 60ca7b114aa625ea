package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conneroisu/groq-go"

	"historymaker/internal/model"
)

const jsonAttempts = 2

// TierModels maps each gateway tier to an upstream model identifier.
type TierModels struct {
	Fast     string
	Balanced string
	Best     string
}

// GroqGateway implements Gateway on the Groq chat-completion API.
type GroqGateway struct {
	client *groq.Client
	models map[Tier]groq.ChatModel
}

var _ Gateway = (*GroqGateway)(nil)

// NewGroqGateway builds the gateway. An empty API key yields a gateway
// whose calls fail with a configuration error, so the server can start
// and report the problem per request.
func NewGroqGateway(apiKey string, models TierModels) (*GroqGateway, error) {
	g := &GroqGateway{
		models: map[Tier]groq.ChatModel{
			TierFast:     groq.ChatModel(models.Fast),
			TierBalanced: groq.ChatModel(models.Balanced),
			TierBest:     groq.ChatModel(models.Best),
		},
	}

	if apiKey == "" {
		slog.Warn("GROQ_API_KEY not set, text generation unavailable")
		return g, nil
	}

	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GroqGateway) Invoke(ctx context.Context, req Request) (string, error) {
	return g.complete(ctx, req, nil)
}

func (g *GroqGateway) InvokeJSON(ctx context.Context, req Request, out any) error {
	format := &groq.ChatResponseFormat{Type: "json_object"}

	var lastErr error
	for attempt := 0; attempt < jsonAttempts; attempt++ {
		content, err := g.complete(ctx, req, format)
		if err != nil {
			return err
		}
		if err := unmarshalLoose(content, out); err != nil {
			lastErr = err
			slog.Warn("Malformed structured output, re-asking", "attempt", attempt+1, "error", err)
			continue
		}
		return nil
	}
	return fmt.Errorf("parse structured output: %w", lastErr)
}

func (g *GroqGateway) complete(ctx context.Context, req Request, format *groq.ChatResponseFormat) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("%w: text generation API key", model.ErrNotConfigured)
	}

	mdl, ok := g.models[req.Tier]
	if !ok {
		return "", fmt.Errorf("%w: unknown model tier %q", model.ErrInvalid, req.Tier)
	}

	messages := make([]groq.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, groq.ChatCompletionMessage{
			Role:    groq.RoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := groq.RoleUser
		if m.Role == RoleAssistant {
			role = groq.RoleAssistant
		}
		messages = append(messages, groq.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := g.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model:          mdl,
		Messages:       messages,
		MaxTokens:      req.MaxTokens,
		Temperature:    req.Temperature,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response")
	}

	return content, nil
}

// unmarshalLoose accepts a bare JSON document or one embedded in prose.
func unmarshalLoose(content string, out any) error {
	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	if blob := extractJSON(content); blob != "" {
		return json.Unmarshal([]byte(blob), out)
	}
	return fmt.Errorf("no JSON document in reply")
}

// extractJSON returns the first balanced {...} or [...] span in s.
func extractJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}

	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
