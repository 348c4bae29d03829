package factory

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// AWSClients bundles the service clients built from one shared AWS configuration.
type AWSClients struct {
	Bedrock *bedrockruntime.Client
	S3      *s3.Client
	Presign *s3.PresignClient
}

// NewAWSClients loads credentials from the default chain and constructs the
// Bedrock runtime and S3 clients. Per-call deadlines come from contexts, so the
// shared HTTP client carries no overall timeout.
func NewAWSClients(ctx context.Context, cfg config.Config) (*AWSClients, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithHTTPClient(NewHTTPClient(0)),
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Region != "" {
			o.Region = cfg.Storage.Region
		}
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.UsePathStyle
	})

	return &AWSClients{
		Bedrock: bedrockruntime.NewFromConfig(awsCfg),
		S3:      s3Client,
		Presign: s3.NewPresignClient(s3Client),
	}, nil
}

// NewHTTPClient returns a client with pooled keep-alive connections. A zero
// timeout leaves the deadline to the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
