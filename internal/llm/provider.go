// Package llm adapts the supported model APIs to one JSON-completion interface.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rankrent-cli/pkg/anthropic"
	"github.com/sells-group/rankrent-cli/pkg/gemini"
)

// Provider names accepted in configuration.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// systemPrompt is sent with every request; all pipeline prompts expect one
// JSON object back.
const systemPrompt = "You are an SEO strategist for local service businesses. Respond with a single valid JSON object and nothing else."

// Completion is the raw text a model returned plus its token usage.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Provider produces a completion for a prompt that asks for JSON output.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// GeminiProvider calls Gemini with JSON response mode.
type GeminiProvider struct {
	client gemini.Client
	model  string
}

// NewGeminiProvider wraps a Gemini client.
func NewGeminiProvider(client gemini.Client, model string) *GeminiProvider {
	return &GeminiProvider{client: client, model: model}
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string { return ProviderGemini }

// Complete sends prompt as a single user turn.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (*Completion, error) {
	resp, err := p.client.GenerateContent(ctx, gemini.GenerateRequest{
		Model:             p.model,
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: systemPrompt}}},
		Contents:          []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: prompt}}}},
		GenerationConfig:  &gemini.GenerationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: gemini complete")
	}
	model := resp.ModelVersion
	if model == "" {
		model = p.model
	}
	return &Completion{
		Text:         resp.Text(),
		Model:        model,
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider wraps an Anthropic client.
func NewAnthropicProvider(client anthropic.Client, model string) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model}
}

// Name returns "anthropic".
func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Complete sends prompt as a single user message.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (*Completion, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:    p.model,
		System:   systemPrompt,
		Messages: []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic complete")
	}
	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &Completion{
		Text:         resp.Text(),
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
