package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore"
)

var logMax int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List commit history from the branch tip",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := mustGetLogger(config)

		meta, err := metaStore(ctx, config)
		if err != nil {
			wrapFatalln("opening metadata store", err)
			return
		}
		repo := vstore.New(meta, vstore.Logger(logger))

		commits, err := repo.ListCommits(ctx, config.Branch, logMax)
		if err != nil {
			wrapFatalln("listing commits", err)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "COMMIT\tTIME\tMAX COORD\tREFS\tMESSAGE")
		for _, c := range commits {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				c.ID,
				c.Timestamp.Format(time.RFC3339),
				c.MaxTime.Format(time.RFC3339),
				c.NumRefs,
				c.Message,
			)
		}
		_ = w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	addStoreFlags(logCmd)
	logCmd.Flags().IntVar(&logMax, "max", 20, "maximum number of commits to list (0: full history)")
}
