package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore"
)

var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Show the current branch tip",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := mustGetLogger(config)

		meta, err := metaStore(ctx, config)
		if err != nil {
			wrapFatalln("opening metadata store", err)
			return
		}
		repo := vstore.New(meta, vstore.Logger(logger))

		tip, err := repo.Tip(ctx, config.Branch)
		if err != nil {
			wrapFatalln("resolving branch tip", err)
			return
		}
		out, _ := yaml.Marshal(tip)
		fmt.Fprintln(os.Stdout, string(out))
	},
}

func init() {
	rootCmd.AddCommand(tipCmd)
	addStoreFlags(tipCmd)
}
