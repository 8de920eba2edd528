package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore"
)

var (
	initSchemaFile string
	initMessage    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a dataset branch from a schema file",
	Long: `Creates a root commit holding the dataset schema and points a new branch at
it. The schema file is a YAML description of the target array: dimensions,
chunk shapes, the append dimension, element type and fill value.

Initializing an existing branch is refused: committed history is never
rewritten.
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := mustGetLogger(config)

		buf, err := os.ReadFile(initSchemaFile)
		if err != nil {
			wrapFatalln("reading schema file", err)
			return
		}
		var schema model.ArraySchema
		if err := yaml.UnmarshalStrict(buf, &schema); err != nil {
			wrapFatalln("parsing schema file", err)
			return
		}
		if schema.AppendAxis() < 0 {
			wrapFatalln(fmt.Sprintf("schema declares no append dimension %q", schema.AppendDim), nil)
			return
		}
		if schema.Version == 0 {
			schema.Version = model.CurrentSchemaVersion
		}

		meta, err := metaStore(ctx, config)
		if err != nil {
			wrapFatalln("opening metadata store", err)
			return
		}
		repo := vstore.New(meta, vstore.Logger(logger))

		commit, err := repo.Init(ctx, config.Branch, schema, initMessage)
		if err != nil {
			wrapFatalln("initializing branch", err)
			return
		}
		fmt.Fprintf(os.Stdout, "initialized branch %q at commit %s\n", config.Branch, commit.ID)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	addStoreFlags(initCmd)
	initCmd.Flags().StringVar(&initSchemaFile, "schema", "", "YAML file describing the target array")
	initCmd.Flags().StringVar(&initMessage, "message", "initial dataset", "root commit message")
	_ = initCmd.MarkFlagRequired("schema")
}
