package cmd

import (
	"fmt"
	"os"

	"cliptone/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cliptone",
	Short: "cliptone converts media sources to MP3 and trims them in the browser.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
