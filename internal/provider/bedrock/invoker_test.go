package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

type fakeRuntime struct {
	input    *bedrockruntime.InvokeModelInput
	options  bedrockruntime.Options
	response []byte
	err      error
	block    bool
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	for _, fn := range optFns {
		fn(&f.options)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.response}, nil
}

func anthropicModel() models.Model {
	return models.Model{ID: "anthropic.claude-3-5-sonnet-20240620-v1:0", Family: models.FamilyAnthropic}
}

func TestInvokeAnthropic(t *testing.T) {
	rt := &fakeRuntime{response: []byte(`{"content":[{"type":"text","text":"hola"}],"usage":{"input_tokens":5,"output_tokens":2}}`)}
	inv, err := New(rt, time.Second, zerolog.Nop())
	require.NoError(t, err)

	c, err := inv.Invoke(context.Background(), models.InvocationRequest{
		Model: anthropicModel(), Message: "hola", System: "sys", Temperature: 0.5, MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", c.Text)
	assert.Equal(t, 7, c.TotalTokens())

	assert.Equal(t, "anthropic.claude-3-5-sonnet-20240620-v1:0", aws.ToString(rt.input.ModelId))
	assert.Equal(t, "application/json", aws.ToString(rt.input.ContentType))
	assert.Equal(t, 1, rt.options.RetryMaxAttempts)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(rt.input.Body, &sent))
	assert.Equal(t, "bedrock-2023-05-31", sent["anthropic_version"])
}

func TestInvokeNovaUsesFlatPrompt(t *testing.T) {
	rt := &fakeRuntime{response: []byte(`{"output":{"message":{"content":[{"text":"ok"}]}},"usage":{"inputTokens":3,"outputTokens":1}}`)}
	inv, err := New(rt, time.Second, zerolog.Nop())
	require.NoError(t, err)

	c, err := inv.Invoke(context.Background(), models.InvocationRequest{
		Model:   models.Model{ID: "amazon.nova-pro-v1:0", Family: models.FamilyNova},
		Message: "hola", System: "sys", MaxTokens: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", c.Text)
	assert.Contains(t, string(rt.input.Body), `sys\n\nUsuario: hola`)
	assert.NotContains(t, string(rt.input.Body), "anthropic_version")
}

func TestInvokeUnknownFamily(t *testing.T) {
	inv, err := New(&fakeRuntime{}, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), models.InvocationRequest{
		Model: models.Model{ID: "meta.llama"}, Message: "hi", MaxTokens: 10,
	})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestInvokeTimeoutIsUpstreamError(t *testing.T) {
	inv, err := New(&fakeRuntime{block: true}, 20*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), models.InvocationRequest{Model: anthropicModel(), Message: "hi", MaxTokens: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
	assert.Contains(t, err.Error(), "timed out")
}

func TestInvokeAPIErrorIsUpstreamError(t *testing.T) {
	rt := &fakeRuntime{err: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}}
	inv, err := New(rt, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), models.InvocationRequest{Model: anthropicModel(), Message: "hi", MaxTokens: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
	assert.Contains(t, err.Error(), "ThrottlingException")
}

func TestInvokeMalformedBodyIsUpstreamError(t *testing.T) {
	inv, err := New(&fakeRuntime{response: []byte(`{}`)}, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), models.InvocationRequest{Model: anthropicModel(), Message: "hi", MaxTokens: 10})
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, time.Second, zerolog.Nop())
	assert.Error(t, err)
	_, err = New(&fakeRuntime{}, 0, zerolog.Nop())
	assert.Error(t, err)
}
