package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/builder"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/catalog"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/core"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Append newly available granules to the dataset",
	Long: `Discovers granules newer than the current branch coverage, builds virtual
chunk references from their structural metadata, and appends the valid,
time-ordered prefix as a new immutable commit.

With --dry-run the commit is skipped and the intended change is reported.
With --run-tests the staged snapshot is read back and verified before the
commit. Rejected granules are reported and remain eligible on a later run.
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := mustGetLogger(config)

		meta, err := metaStore(ctx, config)
		if err != nil {
			wrapFatalln("opening metadata store", err)
			return
		}

		provider := credentialProvider(config)
		resolver := sourceResolver(ctx, config, provider)

		updater := core.New(
			core.Branch(config.Branch),
			core.Catalog(catalog.New(config.Catalog,
				catalog.Collection(config.Collection),
				catalog.Logger(logger),
			)),
			core.Headers(builder.NewIndexHeaderReader(resolver)),
			core.Repo(vstore.New(meta, vstore.Logger(logger))),
			core.Resolver(resolver),
			core.Credentials(provider),
			core.WithSettings(core.Settings{
				DryRun:        config.DryRun,
				RunTests:      config.RunTests,
				LimitGranules: config.LimitGranules,
			}),
			core.Logger(logger),
		)

		summary, err := updater.Run(ctx)
		out, _ := yaml.Marshal(summary)
		fmt.Fprintln(os.Stdout, string(out))
		if err != nil {
			wrapFatalln("update failed", err)
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	addUpdateFlags(updateCmd)
}
