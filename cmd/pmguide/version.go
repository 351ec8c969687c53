package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/pmguide"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pmguide",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pmguide version %s\n", strings.TrimSpace(pmguide.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
