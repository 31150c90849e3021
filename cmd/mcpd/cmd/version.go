package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the mcpd build version, overridden at build time via
// -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mcpd %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
