package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set at build time via -ldflags
var (
	Version   = "dev"
	GitCommit = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		if GitCommit != "" {
			fmt.Printf("%s (%s)\n", Version, GitCommit)
			return
		}
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
