// file: cmd/hostbridge/root.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "hostbridge",
	Short:        "Bridge a host machine's editing, filesystem, and shell capabilities to a backend hub",
	Long:         "hostbridge maintains an outbound connection to a backend hub and serves tool and resource requests against the local workspace: listing, reading, and searching files, validated line replacement, character-by-character typed insertion, and shell execution with output capture.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hostbridge version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hostbridge %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML configuration file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
