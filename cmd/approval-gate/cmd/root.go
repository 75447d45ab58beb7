// Package cmd provides the CLI commands for the approval gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/approval-gate/approvalgate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "approval-gate",
	Short: "Approval Gate - chat-mediated approval workflow",
	Long: `Approval Gate turns Slack into an approval surface for provisioning
requests. Internal tooling posts a request payload to the creation
endpoint; the gate fans it out to a requesters channel (status only)
and an approvers channel (Approve / Reject / Edit buttons), then
drives the decision flow through Slack interaction callbacks.

The server keeps no state of its own: every pending request travels
inside the Slack messages themselves, so restarts and replicas need
no coordination.

Quick start:
  1. Create a config file: approval-gate.yaml
  2. Run: approval-gate serve

Configuration:
  Config is loaded from approval-gate.yaml in the current directory,
  $HOME/.approval-gate/, or /etc/approval-gate/.

  Environment variables can override config values with the APPROVAL_GATE_ prefix.
  Example: APPROVAL_GATE_SLACK_BOT_TOKEN=xoxb-...

Commands:
  serve       Start the approval gate server
  config      Print the effective configuration
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./approval-gate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
