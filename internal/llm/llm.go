// Package llm wraps chat-completion models behind a uniform gateway.
// Callers pick a quality tier; the gateway maps it to a concrete model.
package llm

import "context"

// Tier is a cost/speed/quality class of text-generation model.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierBest     Tier = "best"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Tier        Tier
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Gateway is the single invoke contract every pipeline stage uses for text
// generation. Failures are terminal for the request; no stage retries.
type Gateway interface {
	// Invoke returns the model's reply as a single text blob. A reply with
	// no text content is an error, never an empty string.
	Invoke(ctx context.Context, req Request) (string, error)

	// InvokeJSON requests structured output and unmarshals it into out,
	// re-asking the model once if the first reply does not parse.
	InvokeJSON(ctx context.Context, req Request, out any) error
}
