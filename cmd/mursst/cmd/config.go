package cmd

import (
	"github.com/spf13/viper"
)

// CLIConfig describes the CLI configuration, merged from config file,
// environment and flags.
type CLIConfig struct {
	// bug in viper? Need to keep names of fields the same as the serialized names..
	Store         string `json:"store" yaml:"store"`                   // Target store: s3://bucket/prefix, gs://bucket/prefix or a local path
	Catalog       string `json:"catalog" yaml:"catalog"`               // Granule metadata catalog base URL
	Collection    string `json:"collection" yaml:"collection"`         // Collection short name to discover granules for
	Branch        string `json:"branch" yaml:"branch"`                 // Branch to append to
	SecretARN     string `json:"secret_arn" yaml:"secret_arn"`         // Managed secret holding source access credentials
	Credential    string `json:"credential" yaml:"credential"`         // Credentials file for GCS metadata stores
	DryRun        bool   `json:"dry_run" yaml:"dry_run"`               // Skip commit, report the intended change
	RunTests      bool   `json:"run_tests" yaml:"run_tests"`           // Enable the pre-commit verification gate
	LimitGranules int    `json:"limit_granules" yaml:"limit_granules"` // Cap on discovery count
	LocalTest     bool   `json:"local_test" yaml:"local_test"`         // Source credentials locally instead of from the managed secret store
	Region        string `json:"region" yaml:"region"`                 // AWS region of source buckets
	LogLevel      string `json:"log_level" yaml:"log_level"`           // Log level: none, info, debug
}

func newConfig() (*CLIConfig, error) {
	var config CLIConfig
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}
