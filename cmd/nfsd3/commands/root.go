// Package commands implements the nfsd3 command-line interface.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nfsd3",
	Short: "A user-space NFSv3 server",
	Long: `nfsd3 serves one or more directories over NFSv3 (RFC 1813) and the
MOUNT protocol (RFC 1813 Appendix I) on a single TCP listener.

Configuration is read, in order of precedence, from:
  1. Environment variables prefixed NFSD3_ (e.g. NFSD3_SERVER_LISTEN_ADDR)
  2. A YAML config file (--config, or ~/.config/nfsd3/config.yaml)
  3. Built-in defaults

Run "nfsd3 config init" to write a starting config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default: ~/.config/nfsd3/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newConfigCmd())
}
