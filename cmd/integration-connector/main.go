package main

import (
	"os"

	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {

	var listenAddr string
	var enabledOnly bool
	var payload string

	// rootCmd represents the base command when called without any subcommands
	var rootCmd = &cobra.Command{
		Use: "integration-connector",
	}

	var integrationCacheServiceCmd = &cobra.Command{
		Use:   "integration_cache_service",
		Short: "Integration Cache Sidecar",
		Run: func(cmd *cobra.Command, args []string) {
			startIntegrationCacheService(listenAddr)
		},
	}

	var integrationStatusCmd = &cobra.Command{
		Use:   "integration_status <enterprise_number>",
		Short: "Resolve the integrations enabled for a tenant",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			startIntegrationStatus(args[0], enabledOnly)
		},
	}

	var sendEventCmd = &cobra.Command{
		Use:   "send_event <enterprise_number> <event_type>",
		Short: "Dispatch an event to every integration enabled for a tenant",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			startSendEvent(args[0], args[1], payload)
		},
	}

	rootCmd.AddCommand(integrationCacheServiceCmd)
	integrationCacheServiceCmd.Flags().StringVarP(&listenAddr, "listen-addr", "l", "", "Hostname:port (defaults to the configured cache service address)")

	rootCmd.AddCommand(integrationStatusCmd)
	integrationStatusCmd.Flags().BoolVarP(&enabledOnly, "enabled-only", "e", false, "Only print the enabled integration types")

	rootCmd.AddCommand(sendEventCmd)
	sendEventCmd.Flags().StringVarP(&payload, "payload", "p", "{}", "JSON event payload")

	return rootCmd
}

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
