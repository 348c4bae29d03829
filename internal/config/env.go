package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	if v, ok := lookup("AWS_REGION"); ok && v != "" {
		c.AWS.Region = v
	}
	if v, ok := lookup("S3_BUCKET"); ok && v != "" {
		c.Storage.Bucket = v
	}
	if v, ok := lookup("MCP_BASE_URL"); ok && v != "" {
		base := strings.TrimRight(v, "/")
		c.Tools.Endpoint = base + "/call-tool"
		c.Tools.HealthURL = base + "/health"
	}
	if v, ok := lookup("MCP_FILES_URL"); ok && v != "" {
		c.Tools.FilesBaseURL = v
	}
	if v, ok := lookup("USE_PRESIGNED_URLS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USE_PRESIGNED_URLS: %w", err)
		}
		c.Storage.Presign = b
	}
	if v, ok := lookup("PRESIGNED_URL_EXPIRATION"); ok && v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRESIGNED_URL_EXPIRATION: %w", err)
		}
		c.Storage.PresignExpiry = time.Duration(secs) * time.Second
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Backend = cacheBackendRedis
	}
	return nil
}
