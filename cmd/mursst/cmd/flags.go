package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flag names double as viper/env keys: DRY_RUN, RUN_TESTS, LIMIT_GRANULES,
// LOCAL_TEST and friends all resolve through viper.AutomaticEnv
const (
	storeFlag      = "store"
	catalogFlag    = "catalog"
	collectionFlag = "collection"
	branchFlag     = "branch"
	secretFlag     = "secret-arn"
	credentialFlag = "credential"
	dryRunFlag     = "dry-run"
	runTestsFlag   = "run-tests"
	limitFlag      = "limit-granules"
	localTestFlag  = "local-test"
	regionFlag     = "region"
	logLevelFlag   = "loglevel"
)

func addUpdateFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.String(storeFlag, "", "target store: s3://bucket/prefix, gs://bucket/prefix or a local path")
	fs.String(catalogFlag, "", "granule metadata catalog base URL")
	fs.String(collectionFlag, "", "collection short name")
	fs.String(branchFlag, "", "branch to append to")
	fs.String(secretFlag, "", "managed secret holding source access credentials")
	fs.String(credentialFlag, "", "credentials file for gs:// metadata stores")
	fs.Bool(dryRunFlag, false, "skip commit, report the intended change")
	fs.Bool(runTestsFlag, false, "verify the staged snapshot before committing")
	fs.Int(limitFlag, 0, "cap the number of granules considered per run")
	fs.Bool(localTestFlag, false, "source credentials from the local environment instead of the managed secret store")
	fs.String(regionFlag, "us-west-2", "AWS region of source buckets")

	_ = viper.BindPFlag("store", fs.Lookup(storeFlag))
	_ = viper.BindPFlag("catalog", fs.Lookup(catalogFlag))
	_ = viper.BindPFlag("collection", fs.Lookup(collectionFlag))
	_ = viper.BindPFlag("branch", fs.Lookup(branchFlag))
	_ = viper.BindPFlag("secret_arn", fs.Lookup(secretFlag))
	_ = viper.BindPFlag("credential", fs.Lookup(credentialFlag))
	_ = viper.BindPFlag("dry_run", fs.Lookup(dryRunFlag))
	_ = viper.BindPFlag("run_tests", fs.Lookup(runTestsFlag))
	_ = viper.BindPFlag("limit_granules", fs.Lookup(limitFlag))
	_ = viper.BindPFlag("local_test", fs.Lookup(localTestFlag))
	_ = viper.BindPFlag("region", fs.Lookup(regionFlag))
}

func addStoreFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.String(storeFlag, "", "target store: s3://bucket/prefix, gs://bucket/prefix or a local path")
	fs.String(branchFlag, "", "branch to inspect")
	fs.String(credentialFlag, "", "credentials file for gs:// metadata stores")

	_ = viper.BindPFlag("store", fs.Lookup(storeFlag))
	_ = viper.BindPFlag("branch", fs.Lookup(branchFlag))
	_ = viper.BindPFlag("credential", fs.Lookup(credentialFlag))
}

func addLogLevelFlag(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String(logLevelFlag, "info", "log level: none, info, debug")
	_ = viper.BindPFlag("log_level", fs.Lookup(logLevelFlag))
}
