package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rater",
	Short: "Answer similarity rating service",
	Long: `Rates how close a user's answer is to the correct answer on a 0-100 scale,
using a local spaCy embedding model or a hosted language model.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd, rateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
