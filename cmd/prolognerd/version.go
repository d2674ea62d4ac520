package main

import (
	"fmt"

	"prolognerd-mcp-server/internal/config"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the prolognerd version",
	Run: func(cmd *cobra.Command, args []string) {
		def := config.DefaultConfig()
		fmt.Printf("%s %s\n", def.Server.Name, def.Server.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
