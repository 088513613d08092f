// Package cmd wires configuration, stores and HTTP transport into the
// docgate command line.
package cmd

import (
	"os"

	"github.com/docgate/docgate/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docgate",
	Short: "Authenticated HTTP gateway for document collections",
	Long: `docgate exposes MongoDB collections over HTTP with bearer-token
authentication, soft deletes, lifecycle metadata and an audit trail.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPreRun: func(*cobra.Command, []string) {
		// LOG_LEVEL may be raised again once the .env file is read
		logger.Init(os.Getenv("LOG_LEVEL"))
	},
}

func init() {
	rootCmd.AddCommand(newServeCmd(), newTokenCmd())
}

// Execute runs the root command. Exit code 1 indicates an error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for tests.
func RootCmd() *cobra.Command {
	return rootCmd
}
