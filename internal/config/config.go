package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	familyAnthropic = "anthropic"
	familyNova      = "nova"

	cacheBackendMemory = "memory"
	cacheBackendRedis  = "redis"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	AWS        AWSConfig        `yaml:"aws"`
	Bedrock    BedrockConfig    `yaml:"bedrock"`
	Tools      ToolsConfig      `yaml:"tools"`
	Intent     IntentConfig     `yaml:"intent"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Storage    StorageConfig    `yaml:"storage"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Security   SecurityConfig   `yaml:"security"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	BodyLimit       string        `yaml:"body_limit"`
	UploadBodyLimit string        `yaml:"upload_body_limit"`
}

// AWSConfig selects the region and optional shared-config profile.
type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// BedrockConfig configures model invocation.
type BedrockConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	DefaultModel string        `yaml:"default_model"`
	GenericPrice PriceConfig   `yaml:"generic_price"`
	Models       []ModelConfig `yaml:"models"`
}

// PriceConfig is a per-1000-token price pair in USD.
type PriceConfig struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// ModelConfig describes a catalogued model.
type ModelConfig struct {
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	Provider       string      `yaml:"provider"`
	Family         string      `yaml:"family"`
	MaxTokens      int         `yaml:"max_tokens"`
	Price          PriceConfig `yaml:"price"`
	SupportsSystem bool        `yaml:"supports_system_prompt"`
}

// ToolsConfig points at the external tool-execution service.
type ToolsConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	FilesBaseURL   string        `yaml:"files_base_url"`
	HealthURL      string        `yaml:"health_url"`
	Timeout        time.Duration `yaml:"timeout"`
	DefaultTool    string        `yaml:"default_tool"`
	Allowed        []string      `yaml:"allowed"`
	MinUsefulChars int           `yaml:"min_useful_chars"`
	ToolCallCost   float64       `yaml:"tool_call_cost"`
}

// IntentConfig holds the ordered keyword lists used by the classifier.
type IntentConfig struct {
	Conversational []string `yaml:"conversational"`
	ToolTriggers   []string `yaml:"tool_triggers"`
	Deliverables   []string `yaml:"deliverables"`
}

// ExtractionConfig tunes artifact discovery in tool output.
type ExtractionConfig struct {
	LargeJSONBytes int           `yaml:"large_json_bytes"`
	LocalRoots     []string      `yaml:"local_roots"`
	MaxFileBytes   int64         `yaml:"max_file_bytes"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
}

// StorageConfig configures the S3 artifact bucket.
type StorageConfig struct {
	Bucket           string        `yaml:"bucket"`
	Region           string        `yaml:"region"`
	Endpoint         string        `yaml:"endpoint"`
	UsePathStyle     bool          `yaml:"use_path_style"`
	ArtifactCategory string        `yaml:"artifact_category"`
	UploadCategory   string        `yaml:"upload_category"`
	DefaultProject   string        `yaml:"default_project"`
	Presign          bool          `yaml:"presign"`
	PresignExpiry    time.Duration `yaml:"presign_expiry"`
}

// PromptConfig sets the default system instruction, inline or from a file.
type PromptConfig struct {
	Default string `yaml:"default"`
	File    string `yaml:"file"`
}

// SecurityConfig bounds client input.
type SecurityConfig struct {
	RateLimit          RateLimitConfig `yaml:"rate_limit"`
	MaxMessageLength   int             `yaml:"max_message_length"`
	MaxTokens          int             `yaml:"max_tokens"`
	AuditDBPath        string          `yaml:"audit_db_path"`
	AuditRetention     time.Duration   `yaml:"audit_retention"`
	SuspiciousKeywords []string        `yaml:"suspicious_keywords"`
}

// RateLimitConfig is a requests-per-window budget per client.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// CacheConfig configures the model-path response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig addresses a redis server.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration from disk over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if cfg.Prompt.File != "" {
		data, err := os.ReadFile(cfg.Prompt.File)
		if err != nil {
			return Config{}, fmt.Errorf("prompt.file: read %q: %w", cfg.Prompt.File, err)
		}
		cfg.Prompt.Default = strings.TrimSpace(string(data))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if strings.TrimSpace(c.AWS.Region) == "" {
		return errors.New("aws.region must be provided")
	}

	if err := c.validateBedrock(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}

	if c.Extraction.LargeJSONBytes <= 0 {
		return fmt.Errorf("extraction.large_json_bytes must be positive, got %d", c.Extraction.LargeJSONBytes)
	}
	if c.Extraction.MaxFileBytes <= 0 {
		return fmt.Errorf("extraction.max_file_bytes must be positive, got %d", c.Extraction.MaxFileBytes)
	}

	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return errors.New("storage.bucket must be provided")
	}
	if c.Storage.Endpoint != "" {
		if err := validateURL("storage.endpoint", c.Storage.Endpoint); err != nil {
			return err
		}
	}
	if c.Storage.Presign && c.Storage.PresignExpiry <= 0 {
		return errors.New("storage.presign_expiry must be positive when storage.presign is enabled")
	}
	for key, value := range map[string]string{
		"storage.artifact_category": c.Storage.ArtifactCategory,
		"storage.upload_category":   c.Storage.UploadCategory,
		"storage.default_project":   c.Storage.DefaultProject,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}

	if strings.TrimSpace(c.Prompt.Default) == "" {
		return errors.New("prompt.default must not be empty")
	}

	if c.Security.RateLimit.Requests <= 0 {
		return fmt.Errorf("security.rate_limit.requests must be positive, got %d", c.Security.RateLimit.Requests)
	}
	if c.Security.RateLimit.Window <= 0 {
		return errors.New("security.rate_limit.window must be positive")
	}
	if c.Security.MaxMessageLength <= 0 {
		return fmt.Errorf("security.max_message_length must be positive, got %d", c.Security.MaxMessageLength)
	}
	if c.Security.MaxTokens <= 0 {
		return fmt.Errorf("security.max_tokens must be positive, got %d", c.Security.MaxTokens)
	}

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case cacheBackendMemory:
		case cacheBackendRedis:
			if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
				return errors.New("cache.redis.addr must be provided for the redis backend")
			}
		default:
			return fmt.Errorf("cache.backend %q must be one of %q or %q", c.Cache.Backend, cacheBackendMemory, cacheBackendRedis)
		}
		if c.Cache.TTL <= 0 {
			return errors.New("cache.ttl must be positive when the cache is enabled")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}

	return nil
}

func (c Config) validateBedrock() error {
	if c.Bedrock.Timeout <= 0 {
		return errors.New("bedrock.timeout must be positive")
	}
	if strings.TrimSpace(c.Bedrock.DefaultModel) == "" {
		return errors.New("bedrock.default_model must be provided")
	}
	if c.Bedrock.GenericPrice.InputPer1K < 0 || c.Bedrock.GenericPrice.OutputPer1K < 0 {
		return errors.New("bedrock.generic_price must not be negative")
	}
	if len(c.Bedrock.Models) == 0 {
		return errors.New("bedrock.models: at least one model must be configured")
	}

	seen := make(map[string]struct{}, len(c.Bedrock.Models))
	for _, model := range c.Bedrock.Models {
		if strings.TrimSpace(model.ID) == "" {
			return errors.New("bedrock.models: model id must not be empty")
		}
		if _, dup := seen[model.ID]; dup {
			return fmt.Errorf("bedrock.models: model %q configured twice", model.ID)
		}
		seen[model.ID] = struct{}{}

		switch model.Family {
		case familyAnthropic, familyNova:
		default:
			return fmt.Errorf("bedrock.models: model %q family %q must be one of %q or %q", model.ID, model.Family, familyAnthropic, familyNova)
		}
		if model.MaxTokens <= 0 {
			return fmt.Errorf("bedrock.models: model %q max_tokens must be positive", model.ID)
		}
		if model.Price.InputPer1K < 0 || model.Price.OutputPer1K < 0 {
			return fmt.Errorf("bedrock.models: model %q price must not be negative", model.ID)
		}
	}
	return nil
}

func (c Config) validateTools() error {
	if err := validateURL("tools.endpoint", c.Tools.Endpoint); err != nil {
		return err
	}
	if c.Tools.FilesBaseURL != "" {
		if err := validateURL("tools.files_base_url", c.Tools.FilesBaseURL); err != nil {
			return err
		}
	}
	if c.Tools.Timeout <= 0 {
		return errors.New("tools.timeout must be positive")
	}
	if strings.TrimSpace(c.Tools.DefaultTool) == "" {
		return errors.New("tools.default_tool must be provided")
	}
	if len(c.Tools.Allowed) > 0 {
		found := false
		for _, name := range c.Tools.Allowed {
			if name == c.Tools.DefaultTool {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("tools.default_tool %q is not listed in tools.allowed", c.Tools.DefaultTool)
		}
	}
	if c.Tools.MinUsefulChars < 0 {
		return fmt.Errorf("tools.min_useful_chars must not be negative, got %d", c.Tools.MinUsefulChars)
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, raw)
	}
	return nil
}
