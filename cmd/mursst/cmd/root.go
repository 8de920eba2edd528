package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mursst",
	Short: "mursst maintains a virtual dataset of sea surface temperature granules",
	Long: `mursst incrementally extends an append-only, versioned dataset which stores
references to immutable remote source files rather than copies of their data.

Each run discovers newly available granules from the metadata catalog, builds
virtual chunk references from their structural metadata, validates them against
the dataset schema and time ordering, and atomically appends the valid,
time-ordered subset as a new immutable commit on a branch.

The underlying data is never copied or transformed, and committed history is
never rewritten.
`,
}

var config *CLIConfig

// used to patch over calls to os.Exit() during test
var logFatalln = log.Fatalln
var logFatalf = log.Fatalf

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)
	addLogLevelFlag(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetDefault("branch", "main")
	viper.SetDefault("catalog", "https://cmr.earthdata.nasa.gov/search")
	viper.SetDefault("collection", "MUR-JPL-L4-GLOB-v4.1")

	if os.Getenv("MURSST_CONFIG") != "" {
		// Use config file from the flag.
		viper.SetConfigFile(os.Getenv("MURSST_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.mursst")
		viper.AddConfigPath("/etc/mursst")
		viper.SetConfigName("mursst")
	}

	viper.AutomaticEnv() // read in environment variables that match
	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}
	var err error
	config, err = newConfig()
	if err != nil {
		logFatalln(err)
	}
}

func wrapFatalln(msg string, err error) {
	if err == nil {
		logFatalln(msg)
	} else {
		logFatalf("%v", fmt.Errorf(msg+": %w", err))
	}
}
