package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhamidi/sls-lsp/sls"
	"github.com/dhamidi/sls-lsp/sls/render"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <file>",
		Short: "Run only the template pre-pass on an .sls file",
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
			fmt.Println(rendered)
			return nil
		},
	}
}
