package main

import (
	"fmt"
	"strings"

	"github.com/bazaarsim/vyapari"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of vyapari",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vyapari version %s\n", strings.TrimSpace(vyapari.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
