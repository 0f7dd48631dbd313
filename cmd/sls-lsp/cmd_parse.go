package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhamidi/sls-lsp/sls"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var rootDir string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse an .sls file and dump its tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("read sls file: %w", err)
			}

			root := rootDir
			if root == "" {
				if root = sls.GetRoot(filename); root == "" {
					root = filepath.Dir(filename)
				}
			}

			tree, err := sls.Parse(root, string(data))
			if err != nil {
				return fmt.Errorf("render %s: %w", filename, err)
			}
			fmt.Print(tree.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", "", "states directory for resolving includes (default: derived from the file path)")

	return cmd
}
