package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rankrent-cli/pkg/anthropic"
	"github.com/sells-group/rankrent-cli/pkg/gemini"
)

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) GenerateContent(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.GenerateResponse), args.Error(1)
}

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestGeminiProvider_Complete(t *testing.T) {
	t.Parallel()

	client := &mockGemini{}
	client.On("GenerateContent", mock.Anything, mock.MatchedBy(func(req gemini.GenerateRequest) bool {
		return req.Model == "gemini-2.0-flash" &&
			req.GenerationConfig.ResponseMimeType == "application/json" &&
			req.Contents[0].Parts[0].Text == "prompt"
	})).Return(&gemini.GenerateResponse{
		Candidates:    []gemini.Candidate{{Content: gemini.Content{Parts: []gemini.Part{{Text: `{"a":1}`}}}}},
		UsageMetadata: gemini.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 3},
	}, nil)

	p := NewGeminiProvider(client, "gemini-2.0-flash")
	assert.Equal(t, ProviderGemini, p.Name())

	c, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, c.Text)
	assert.Equal(t, "gemini-2.0-flash", c.Model)
	assert.Equal(t, int64(10), c.InputTokens)
	assert.Equal(t, int64(3), c.OutputTokens)
	client.AssertExpectations(t)
}

func TestGeminiProvider_Error(t *testing.T) {
	t.Parallel()

	client := &mockGemini{}
	client.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, errors.New("status 429"))

	_, err := NewGeminiProvider(client, "m").Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: gemini complete")
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropicProvider_Complete(t *testing.T) {
	t.Parallel()

	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" && req.System != "" && req.Messages[0].Content == "prompt"
	})).Return(&anthropic.MessageResponse{
		Model:   "claude-haiku-4-5-20251001",
		Content: []anthropic.ContentBlock{{Type: "text", Text: "{}"}},
		Usage:   anthropic.TokenUsage{InputTokens: 7, OutputTokens: 2},
	}, nil)

	p := NewAnthropicProvider(client, "claude-haiku-4-5-20251001")
	assert.Equal(t, ProviderAnthropic, p.Name())

	c, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "{}", c.Text)
	assert.Equal(t, int64(7), c.InputTokens)
	client.AssertExpectations(t)
}

func TestAnthropicProvider_Error(t *testing.T) {
	t.Parallel()

	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	_, err := NewAnthropicProvider(client, "m").Complete(context.Background(), "p")
	assert.ErrorContains(t, err, "llm: anthropic complete")
}
