package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sls-lsp",
		Short: "A language server for Salt state files",
	}

	rootCmd.AddCommand(newLSPCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newTokensCmd())
	rootCmd.AddCommand(newRenderCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
