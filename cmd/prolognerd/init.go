package main

import (
	"fmt"
	"path/filepath"

	"prolognerd-mcp-server/internal/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a .prolognerd workspace",
	Long: `Creates a .prolognerd/ directory with a config template, a sessions
directory, and a .gitignore for runtime data.

The server discovers the workspace by walking up from the current directory,
so project-local sessions and settings travel with the repository.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		if err := config.InitWorkspace(root); err != nil {
			return err
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = root
		}
		fmt.Printf("Initialized PrologNERD workspace in %s\n", filepath.Join(abs, config.WorkspaceDirName))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
