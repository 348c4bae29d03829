package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/cache"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/extractor"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/health"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/intent"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/logging"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/orchestrator"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/prompt"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/provider"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/provider/bedrock"
	providerfactory "github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/provider/factory"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/scheduler"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/security"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/server"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/storage"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/toolclient"
)

func newServeCmd() *cobra.Command {
	var (
		cfgPath      string
		overridePort int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath, overridePort)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML configuration file (defaults and environment when empty)")
	cmd.Flags().IntVar(&overridePort, "port", 0, "override server port from configuration")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration without starting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath, 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: port %d, %d catalogued models, tool service %s, bucket %s\n",
				cfg.Server.Port, len(cfg.Bedrock.Models), cfg.Tools.Endpoint, cfg.Storage.Bucket)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML configuration file")
	return cmd
}

func loadConfig(path string, overridePort int) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if overridePort != 0 {
		if overridePort < 0 || overridePort > 65535 {
			return config.Config{}, fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.New(cfg.Logging)

	clients, err := providerfactory.NewAWSClients(ctx, cfg)
	if err != nil {
		return err
	}

	registry, err := provider.NewRegistryFromConfig(cfg.Bedrock)
	if err != nil {
		return err
	}
	invoker, err := bedrock.New(clients.Bedrock, cfg.Bedrock.Timeout, logger)
	if err != nil {
		return err
	}

	tools, err := toolclient.New(cfg.Tools, providerfactory.NewHTTPClient(0), logger)
	if err != nil {
		return err
	}
	resolver := extractor.NewResolver(cfg.Extraction, cfg.Tools.FilesBaseURL, providerfactory.NewHTTPClient(cfg.Extraction.FetchTimeout))
	files := extractor.New(cfg.Extraction, resolver, logger)

	var presigner storage.Presigner
	if cfg.Storage.Presign {
		presigner = clients.Presign
	}
	store, err := storage.New(clients.S3, presigner, cfg.Storage, cfg.AWS.Region, logger)
	if err != nil {
		return err
	}

	audit := openAudit(cfg.Security.AuditDBPath, logger)
	defer audit.Close()

	limiter := security.NewLimiter(cfg.Security.RateLimit)
	anomaly := security.NewAnomalyDetector(cfg.Security.SuspiciousKeywords)
	guard := security.NewGuard(security.NewValidator(cfg.Security), anomaly, audit, logger)

	responses, err := cache.New(cfg.Cache)
	if err != nil {
		return err
	}

	checks := []health.Check{
		{Name: "tools", Run: tools.Ping},
		{Name: "storage", Run: store.Ping},
	}
	var memCache *cache.Memory
	switch c := responses.(type) {
	case *cache.Redis:
		defer c.Close()
		checks = append(checks, health.Check{Name: "redis", Run: c.Ping})
	case *cache.Memory:
		memCache = c
	}

	prompts := prompt.NewStore(cfg.Prompt.Default)

	orch, err := orchestrator.New(cfg, orchestrator.Deps{
		Models:     registry,
		Classifier: intent.New(cfg.Intent),
		Invoker:    invoker,
		Tools:      tools,
		Extractor:  files,
		Store:      store,
		Prompts:    prompts,
		Cache:      responses,
	}, logger)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(logger, scheduler.Maintenance{
		Limiter:        limiter,
		LimiterIdle:    cfg.Security.RateLimit.Window,
		Anomaly:        anomaly,
		Audit:          audit,
		AuditRetention: cfg.Security.AuditRetention,
		Cache:          memCache,
		Logger:         logger.With().Str("component", "maintenance").Logger(),
	}.Jobs()...)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv, err := server.New(cfg, server.Deps{
		Chat:    orch,
		Models:  registry,
		Guard:   guard,
		Limiter: limiter,
		Files:   store,
		Prompts: prompts,
		Health:  health.NewChecker(checks...),
		Version: version,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("region", cfg.AWS.Region).
		Str("default_model", cfg.Bedrock.DefaultModel).
		Str("tool_endpoint", cfg.Tools.Endpoint).
		Str("bucket", cfg.Storage.Bucket).
		Bool("cache", responses != nil).
		Msg("gateway configured")

	return srv.Run(ctx)
}

// openAudit prefers the SQLite log and falls back to memory when it cannot be opened.
func openAudit(path string, logger zerolog.Logger) security.Audit {
	if path == "" {
		return security.NewMemoryAudit()
	}
	audit, err := security.NewSQLiteAudit(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("audit database unavailable, keeping audit log in memory")
		return security.NewMemoryAudit()
	}
	return audit
}
