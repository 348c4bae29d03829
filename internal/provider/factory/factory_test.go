package factory

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
)

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(5 * time.Second)
	assert.Equal(t, 5*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 50, transport.MaxIdleConns)
}

func TestNewAWSClientsAppliesStorageOverrides(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	cfg := config.Default()
	cfg.AWS.Region = "us-west-2"
	cfg.Storage.Region = "eu-west-1"
	cfg.Storage.Endpoint = "http://localhost:9000"
	cfg.Storage.UsePathStyle = true

	clients, err := NewAWSClients(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, clients.Bedrock)
	require.NotNil(t, clients.Presign)

	opts := clients.S3.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "us-west-2", clients.Bedrock.Options().Region)
}
