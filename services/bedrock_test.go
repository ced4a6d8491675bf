package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBedrockClient struct {
	invokeFunc func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error)
}

func (m *mockBedrockClient) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	return m.invokeFunc(ctx, params)
}

func TestBedrockService_InvokeWithPrompt(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	var sent ClaudeRequest
	client := &mockBedrockClient{
		invokeFunc: func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
			assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *params.ModelId)
			require.NoError(t, json.Unmarshal(params.Body, &sent))
			return &bedrockruntime.InvokeModelOutput{
				Body: []byte(`{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"{\"top_10_picks\":[]}"}],"stop_reason":"end_turn"}`),
			}, nil
		},
	}

	service := newBedrockServiceWithClient(client, "anthropic.claude-3-haiku-20240307-v1:0", 4000, 0.1)
	text, err := service.InvokeWithPrompt(context.Background(), "You rank stocks", "Rank these")
	require.NoError(t, err)
	assert.Equal(t, `{"top_10_picks":[]}`, text)

	assert.Equal(t, bedrockAnthropicVersion, sent.AnthropicVersion)
	assert.Equal(t, 4000, sent.MaxTokens)
	assert.Equal(t, 0.1, sent.Temperature)
	assert.Equal(t, "You rank stocks", sent.System)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "user", sent.Messages[0].Role)
}

func TestBedrockService_InvokeWithPrompt_Errors(t *testing.T) {
	tests := []struct {
		name    string
		output  *bedrockruntime.InvokeModelOutput
		err     error
		wantErr string
	}{
		{"invoke failure", nil, errors.New("AccessDeniedException"), "failed to invoke model"},
		{"bad body", &bedrockruntime.InvokeModelOutput{Body: []byte("not json")}, nil, "failed to unmarshal response"},
		{"empty content", &bedrockruntime.InvokeModelOutput{Body: []byte(`{"content":[]}`)}, nil, "empty response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))
			client := &mockBedrockClient{
				invokeFunc: func(context.Context, *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
					return tt.output, tt.err
				},
			}
			_, err := newBedrockServiceWithClient(client, "model", 0, 0).InvokeWithPrompt(context.Background(), "s", "u")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewBedrockServiceWithClient_DefaultMaxTokens(t *testing.T) {
	service := newBedrockServiceWithClient(&mockBedrockClient{}, "model", 0, 0)
	assert.Equal(t, 4096, service.maxTokens)
}
