// Package cmd provides the mcpd CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/airsstack-go/mcp-runtime/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcpd",
	Short: "mcpd runs an MCP runtime server",
	Long: `mcpd hosts an MCP server session core over stdio or the Streamable
HTTP transport.

Configuration is loaded from mcp-runtime.yaml in the current directory,
$HOME/.mcp-runtime/, or /etc/mcp-runtime/. Environment variables override
config values with the MCPRUNTIME_ prefix, e.g. MCPRUNTIME_SERVER_HTTP_ADDR.`,
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mcp-runtime.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
