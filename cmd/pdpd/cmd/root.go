// Package cmd provides the CLI commands for pdpd.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xacmlgo/pdp/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pdpd",
	Short: "pdpd - XACML 3.0 Policy Decision Point",
	Long: `pdpd evaluates XACML 3.0 access requests against a set of loaded
Policy and PolicySet documents and returns Permit, Deny, NotApplicable,
or Indeterminate.

Quick start:
  1. Create a config file: pdpd.yaml
  2. Run: pdpd serve

Configuration:
  Config is loaded from pdpd.yaml in the current directory, $HOME/.pdpd/,
  or /etc/pdpd/.

  Environment variables can override config values with the PDPD_ prefix.
  Example: PDPD_SERVER_HTTP_ADDR=:9090

Commands:
  serve           Start the PDP server
  version         Print version information
  config init     Write a default pdpd.yaml to disk
  hash-admin-key  Generate an Argon2id hash for an admin API token`,
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pdpd.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
