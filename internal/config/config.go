// Package config provides configuration types for the approval gate.
//
// The schema is file-based and intentionally small: one Slack workspace,
// a default channel pair, optional per-team channel pairs, an optional
// CEL approval policy, and optional provisioning webhooks. Everything
// else (TLS termination, retries, queueing) belongs to the
// infrastructure around the service.
package config

import (
	"github.com/spf13/viper"
)

// Config is the top-level configuration for the approval gate.
type Config struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Slack configures the workspace credentials.
	Slack SlackConfig `yaml:"slack" mapstructure:"slack"`

	// Channels configures where request messages are posted.
	Channels ChannelsConfig `yaml:"channels" mapstructure:"channels"`

	// Policy configures the optional approval policy expression.
	Policy PolicyConfig `yaml:"policy" mapstructure:"policy"`

	// Webhooks configures the optional provisioning webhooks fired on
	// decisions.
	Webhooks WebhooksConfig `yaml:"webhooks" mapstructure:"webhooks"`

	// DevMode enables development features (verbose logging, etc).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// TLSCert and TLSKey enable TLS when both are set.
	TLSCert string `yaml:"tls_cert" mapstructure:"tls_cert"`
	TLSKey  string `yaml:"tls_key" mapstructure:"tls_key"`
}

// SlackConfig configures the Slack workspace connection.
type SlackConfig struct {
	// BotToken is the bot user OAuth token ("xoxb-...").
	BotToken string `yaml:"bot_token" mapstructure:"bot_token" validate:"required,bot_token"`

	// SigningSecret authenticates interaction callbacks from Slack.
	SigningSecret string `yaml:"signing_secret" mapstructure:"signing_secret" validate:"required"`

	// APIURL overrides the Slack API base URL. Leave empty for
	// production; point it at a local endpoint for testing.
	APIURL string `yaml:"api_url" mapstructure:"api_url" validate:"omitempty,url"`
}

// ChannelsConfig configures the destination channels for the dual
// message fan-out.
type ChannelsConfig struct {
	// Approvers is the default channel for actionable messages.
	Approvers string `yaml:"approvers" mapstructure:"approvers" validate:"required,channel_id"`

	// Requesters is the default channel for status-only messages.
	Requesters string `yaml:"requesters" mapstructure:"requesters" validate:"required,channel_id"`

	// Teams maps an approving team name (the "approving_team" field of
	// a request payload) to its own channel pair. Requests naming an
	// unknown team fall back to the default pair.
	Teams map[string]TeamChannels `yaml:"teams" mapstructure:"teams" validate:"omitempty,dive"`
}

// TeamChannels is a per-team channel pair.
type TeamChannels struct {
	Approvers  string `yaml:"approvers" mapstructure:"approvers" validate:"required,channel_id"`
	Requesters string `yaml:"requesters" mapstructure:"requesters" validate:"required,channel_id"`
}

// PolicyConfig configures the optional approval policy.
type PolicyConfig struct {
	// Expression is a CEL expression evaluated on every Approve click.
	// Available variables: action, name, requester, approver_email,
	// fields. Must produce a bool; false blocks the approval.
	// Empty disables the policy.
	Expression string `yaml:"expression" mapstructure:"expression"`

	// DenyMessage is shown to the approver when the policy blocks an
	// approval. Defaults to a generic message.
	DenyMessage string `yaml:"deny_message" mapstructure:"deny_message"`
}

// WebhooksConfig configures the decision webhooks. Empty URLs disable
// the corresponding webhook.
type WebhooksConfig struct {
	ApprovedURL string `yaml:"approved_url" mapstructure:"approved_url" validate:"omitempty,url"`
	RejectedURL string `yaml:"rejected_url" mapstructure:"rejected_url" validate:"omitempty,url"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Bind to localhost only unless explicitly configured otherwise.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Policy.DenyMessage == "" {
		c.Policy.DenyMessage = "Approval blocked by policy."
	}
}

// SetDevDefaults applies development-mode overrides. These are applied
// after SetDefaults and before validation.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	// viper.IsSet distinguishes "not set" from an explicit value.
	if !viper.IsSet("server.log_level") {
		c.Server.LogLevel = "debug"
	}
}
