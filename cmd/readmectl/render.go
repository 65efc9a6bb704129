package main

import (
	"fmt"
	"os"

	"github.com/readme-readyou/readme-readyou/internal/render"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render <file.md>",
		Short: "Render a Markdown file into the SVG card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			svg, err := render.Card(string(src))
			if err != nil {
				return fmt.Errorf("render %s: %w", args[0], err)
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(svg)
				return err
			}
			return os.WriteFile(out, svg, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the SVG to this file instead of stdout")
	return cmd
}
