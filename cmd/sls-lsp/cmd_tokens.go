package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhamidi/sls-lsp/sls"
	"github.com/dhamidi/sls-lsp/sls/parser"
	"github.com/dhamidi/sls-lsp/sls/render"
	"github.com/spf13/cobra"
)

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file>",
		Short: "Dump the token stream of a rendered .sls file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("read sls file: %w", err)
			}

			root := sls.GetRoot(filename)
			if root == "" {
				root = filepath.Dir(filename)
			}
			rendered, err := render.Render(root, string(data))
			if err != nil {
				return fmt.Errorf("render %s: %w", filename, err)
			}

			scanner := parser.NewScanner(rendered)
			for {
				tok, err := scanner.Next()
				if err != nil {
					fmt.Printf("error: %s\n", err)
					return nil
				}
				fmt.Println(tok)
				if tok.Kind == parser.TokenStreamEnd {
					return nil
				}
			}
		},
	}
}
