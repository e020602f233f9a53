package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Provider summarizes one ticket conversation into the structured JSON
// the pipeline expects. Exactly one backend is active per analysis run;
// pipeline code never branches on which one.
type Provider interface {
	// Summarize sends the ordered comment bodies plus instructions to the
	// backend and returns the raw response text.
	Summarize(ctx context.Context, comments []string, instructions string) (string, error)
	Name() string
	Close() error
}

const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New selects a backend by provider name. An empty name means the mock
// backend; unknown names are rejected.
func New(ctx context.Context, name string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderOpenAI:
		return NewOpenAIProvider(opts), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(opts), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, opts)
	case ProviderMock, "":
		return MockProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", name)
	}
}

// formatConversation numbers the comments the way every backend receives
// them: "Comment N: <body>" blocks separated by blank lines.
func formatConversation(comments []string) string {
	var b strings.Builder
	for i, c := range comments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Comment %d: %s", i+1, c)
	}
	return b.String()
}

var codeFenceRe = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ExtractJSON strips a markdown code fence when a backend wraps its
// response in one despite the instructions.
func ExtractJSON(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
