package cmd

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/auth"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/builder"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/dlogger"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage/gcs"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage/localfs"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage/sthree"
)

func mustGetLogger(c *CLIConfig) *zap.Logger {
	level := c.LogLevel
	if level == "" {
		level = dlogger.LogLevelInfo
	}
	if c.LocalTest {
		l, err := dlogger.GetConsoleLogger(level)
		if err != nil {
			wrapFatalln("building logger", err)
		}
		return l
	}
	return dlogger.MustGetLogger(level)
}

// metaStore dispatches the store target on its scheme: s3://bucket/prefix,
// gs://bucket/prefix, anything else is a local file system path
func metaStore(ctx context.Context, c *CLIConfig) (storage.Store, error) {
	target := c.Store
	switch {
	case strings.HasPrefix(target, "s3://"):
		parsed, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		store := sthree.New(
			sthree.Bucket(parsed.Host),
			sthree.AWSConfig(aws.NewConfig().WithRegion(c.Region)),
		)
		return storage.Prefixed(store, parsed.Path), nil
	case strings.HasPrefix(target, "gs://"):
		parsed, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		store, err := gcs.New(ctx, parsed.Host, c.Credential)
		if err != nil {
			return nil, err
		}
		return storage.Prefixed(store, parsed.Path), nil
	default:
		return localfs.New(afero.NewBasePathFs(afero.NewOsFs(), target)), nil
	}
}

// credentialProvider selects the source of granule access credentials:
// the managed secret store, or the local environment for test runs
func credentialProvider(c *CLIConfig) auth.Provider {
	if c.LocalTest {
		return auth.Static(model.Credentials{
			AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken: os.Getenv("AWS_SESSION_TOKEN"),
		})
	}
	return auth.Refreshing(auth.SecretsManager(c.SecretARN), 5*time.Minute)
}

// sourceResolver maps granule URIs to stores holding them, with short lived
// credentials from the provider
func sourceResolver(ctx context.Context, c *CLIConfig, provider auth.Provider) builder.Resolver {
	return builder.NewResolver(map[string]builder.StoreFactory{
		"s3": func(bucket string) (storage.Store, error) {
			creds, err := provider.Credentials(ctx)
			if err != nil {
				return nil, err
			}
			return sthree.New(
				sthree.Bucket(bucket),
				sthree.AWSConfig(aws.NewConfig().WithRegion(c.Region)),
				sthree.Credentials(creds),
			), nil
		},
		"file": func(string) (storage.Store, error) {
			return localfs.New(afero.NewOsFs()), nil
		},
	})
}
