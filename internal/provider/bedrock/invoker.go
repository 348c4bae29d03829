// Package bedrock invokes foundation models through the Bedrock runtime,
// delegating payload shapes to per-family codecs.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/provider"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/provider/anthropic"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/provider/nova"
)

const contentTypeJSON = "application/json"

// RuntimeAPI is the subset of the Bedrock runtime client used here.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Invoker dispatches invocations to the codec matching the model family.
type Invoker struct {
	client  RuntimeAPI
	codecs  map[models.ModelFamily]provider.Codec
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// New constructs an invoker with the Anthropic and Nova codecs registered.
func New(client RuntimeAPI, timeout time.Duration, logger zerolog.Logger) (*Invoker, error) {
	if client == nil {
		return nil, errors.New("bedrock runtime client must not be nil")
	}
	if timeout <= 0 {
		return nil, errors.New("bedrock timeout must be positive")
	}

	inv := &Invoker{
		client:  client,
		codecs:  make(map[models.ModelFamily]provider.Codec),
		timeout: timeout,
		logger:  logger.With().Str("component", "bedrock").Logger(),
		now:     time.Now,
	}
	for _, c := range []provider.Codec{anthropic.New(), nova.New()} {
		inv.codecs[c.Family()] = c
	}
	return inv, nil
}

// Invoke performs one InvokeModel call without retries under the configured timeout.
func (i *Invoker) Invoke(ctx context.Context, req models.InvocationRequest) (*models.Completion, error) {
	codec, ok := i.codecs[req.Model.Family]
	if !ok {
		return nil, fmt.Errorf("%w: model %s has unsupported family %q", apperr.ErrConfiguration, req.Model.ID, req.Model.Family)
	}

	body, err := codec.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := i.now()
	out, err := i.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model.ID),
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
		Body:        body,
	}, func(o *bedrockruntime.Options) {
		o.RetryMaxAttempts = 1
	})
	latency := i.now().Sub(start)
	if err != nil {
		i.logger.Warn().Err(err).Str("model", req.Model.ID).Dur("latency", latency).Msg("invoke model failed")
		return nil, describeError(req.Model.ID, err)
	}

	completion, err := codec.DecodeResponse(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	completion.Latency = latency

	i.logger.Debug().
		Str("model", req.Model.ID).
		Int("input_tokens", completion.InputTokens).
		Int("output_tokens", completion.OutputTokens).
		Dur("latency", latency).
		Msg("model invoked")
	return completion, nil
}

func describeError(modelID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: bedrock model %s timed out", apperr.ErrUpstream, modelID)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: bedrock %s: %s", apperr.ErrUpstream, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("%w: bedrock invoke %s: %v", apperr.ErrUpstream, modelID, err)
}
