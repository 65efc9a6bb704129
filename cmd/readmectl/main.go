package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "readmectl",
		Short: "Offline tools for ReadMe ReadYou",
		Long:  "readmectl renders README Markdown into the embeddable SVG card and prints generation prompts.",
	}

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newPromptCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
