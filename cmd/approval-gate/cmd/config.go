package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/approval-gate/approvalgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML after defaults and
environment overrides are applied. Secrets are redacted.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.SetDevDefaults()

	redacted := *cfg
	redacted.Slack.BotToken = redactSecret(redacted.Slack.BotToken)
	redacted.Slack.SigningSecret = redactSecret(redacted.Slack.SigningSecret)

	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if file := config.ConfigFileUsed(); file != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", file)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "# no config file found (environment variables only)")
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

// redactSecret keeps a short prefix so operators can tell which
// credential is loaded without exposing it.
func redactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:8] + "..."
}
