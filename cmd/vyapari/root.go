package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vyapari",
	Short: "Vyapari runs the bazaar negotiation pipeline",
	Long: `Vyapari drives a turn-based negotiation with an LLM-backed vendor:
every proposal the model makes is validated against a fixed stage
machine and happiness rules before it is persisted or spoken.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env for local development; env vars win.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}
