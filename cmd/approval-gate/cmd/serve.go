package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	inboundhttp "github.com/approval-gate/approvalgate/internal/adapter/inbound/http"
	"github.com/approval-gate/approvalgate/internal/adapter/outbound/cel"
	"github.com/approval-gate/approvalgate/internal/adapter/outbound/slackapi"
	"github.com/approval-gate/approvalgate/internal/adapter/outbound/webhook"
	"github.com/approval-gate/approvalgate/internal/config"
	"github.com/approval-gate/approvalgate/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the approval gate server",
	Long: `Start the approval gate HTTP server.

The server exposes:
  POST /api/v1/requests      creation endpoint for internal tooling
  POST /api/v1/interactions  Slack interactivity callbacks
  GET  /health               health check
  GET  /metrics              Prometheus metrics

Examples:
  # Start with config file settings
  approval-gate serve

  # Start with a specific config file
  approval-gate --config /path/to/config.yaml serve`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration (without validation, so CLI flags can override first)
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if devMode {
		cfg.DevMode = true
	}

	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("approval-gate stopped")
	return nil
}

// run wires all components together and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Slack Web API client, the single outbound notifier.
	notifierOpts := []slackapi.Option{slackapi.WithLogger(logger)}
	if cfg.Slack.APIURL != "" {
		notifierOpts = append(notifierOpts, slackapi.WithAPIURL(cfg.Slack.APIURL))
	}
	notifier := slackapi.NewClient(cfg.Slack.BotToken, notifierOpts...)

	// Channel routing: default pair plus per-team overrides.
	teams := make(map[string]service.ChannelPair, len(cfg.Channels.Teams))
	for name, tc := range cfg.Channels.Teams {
		teams[name] = service.ChannelPair{Approvers: tc.Approvers, Requesters: tc.Requesters}
	}
	router := service.NewChannelRouter(service.ChannelPair{
		Approvers:  cfg.Channels.Approvers,
		Requesters: cfg.Channels.Requesters,
	}, teams)
	logger.Info("channel routing configured",
		"approvers", cfg.Channels.Approvers,
		"requesters", cfg.Channels.Requesters,
		"teams", len(teams),
	)

	// Decision hooks: webhook delivery when configured, log-only otherwise.
	var fallback service.Provisioner
	if cfg.Webhooks.ApprovedURL != "" || cfg.Webhooks.RejectedURL != "" {
		fallback = webhook.New(cfg.Webhooks.ApprovedURL, cfg.Webhooks.RejectedURL, logger)
		logger.Info("decision webhooks configured")
	} else {
		fallback = &service.LogProvisioner{Logger: logger}
	}
	hooks := service.NewHookRegistry(fallback)

	// Optional CEL approval policy.
	var provisionOpts []service.ProvisionOption
	if cfg.Policy.Expression != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return fmt.Errorf("failed to create policy evaluator: %w", err)
		}
		rule, err := evaluator.NewRule(cfg.Policy.Expression, cfg.Policy.DenyMessage)
		if err != nil {
			return fmt.Errorf("invalid policy expression: %w", err)
		}
		provisionOpts = append(provisionOpts, service.WithRule(rule))
		logger.Info("approval policy enabled")
	}

	intake := service.NewRequestService(notifier, router, logger)
	interactions := service.NewProvisionService(notifier, hooks, logger, provisionOpts...)

	health := inboundhttp.NewHealthChecker(Version)

	transportOpts := []inboundhttp.Option{
		inboundhttp.WithAddr(cfg.Server.HTTPAddr),
		inboundhttp.WithLogger(logger),
		inboundhttp.WithHealthChecker(health),
	}
	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		transportOpts = append(transportOpts, inboundhttp.WithTLS(cfg.Server.TLSCert, cfg.Server.TLSKey))
	}
	transport := inboundhttp.NewTransport(intake, interactions, cfg.Slack.SigningSecret, transportOpts...)

	return transport.Start(ctx)
}

// parseLogLevel converts a config log level string to a slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
