package main

import (
	"github.com/dhamidi/sls-lsp/sls/codebase"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

func newLSPCmd() *cobra.Command {
	var completionsPath string
	var verbosity int

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			commonlog.Configure(verbosity, nil)
			server := codebase.NewLSPServer("0.1.0")
			if completionsPath != "" {
				server.SetCompletionsPath(completionsPath)
			}
			return server.RunStdio()
		},
	}

	cmd.Flags().StringVar(&completionsPath, "completions", "", "state module metadata dump used for completion (default: $SLS_STATE_MODULES)")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")

	return cmd
}
