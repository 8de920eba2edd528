package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/auth"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/builder"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/catalog"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore"
)

const (
	defaultMaxCommitAttempts = 4
	defaultVerifySample      = 16
	defaultConcurrentFetches = 4
	defaultRetryInterval     = 500 * time.Millisecond
)

// Settings is the explicit configuration value of one run, constructed once
// at invocation start and threaded through every component call
type Settings struct {
	DryRun            bool          // skip commit, report the intended change
	RunTests          bool          // enable the pre-commit verification gate
	LimitGranules     int           // cap on discovery count (0: no cap)
	MaxCommitAttempts int           // bounded retries on commit conflicts
	VerifySample      int           // bounded sample size for the verification gate
	ConcurrentFetches int           // metadata fetch concurrency in the builder
	RetryInterval     time.Duration // initial backoff interval between commit attempts
}

func defaultSettings() Settings {
	return Settings{
		MaxCommitAttempts: defaultMaxCommitAttempts,
		VerifySample:      defaultVerifySample,
		ConcurrentFetches: defaultConcurrentFetches,
		RetryInterval:     defaultRetryInterval,
	}
}

// Option is a functor to build an updater with some options
type Option func(*Updater)

// Branch sets the branch the updater appends to
func Branch(branch string) Option {
	return func(u *Updater) {
		u.branch = branch
	}
}

// Catalog sets the discovery client
func Catalog(c catalog.Catalog) Option {
	return func(u *Updater) {
		u.catalog = c
	}
}

// Headers sets the structural metadata reading capability
func Headers(h builder.HeaderReader) Option {
	return func(u *Updater) {
		u.headers = h
	}
}

// Repo sets the versioned reference store
func Repo(r *vstore.Repository) Option {
	return func(u *Updater) {
		u.repo = r
	}
}

// Resolver sets the source object resolver used by the verification gate to
// issue bounded ranged reads against granules
func Resolver(r builder.Resolver) Option {
	return func(u *Updater) {
		u.resolver = r
	}
}

// Credentials injects the credential capability used for remote access
func Credentials(p auth.Provider) Option {
	return func(u *Updater) {
		u.creds = p
	}
}

// WithSettings sets the run settings
func WithSettings(s Settings) Option {
	return func(u *Updater) {
		if s.MaxCommitAttempts <= 0 {
			s.MaxCommitAttempts = defaultMaxCommitAttempts
		}
		if s.VerifySample <= 0 {
			s.VerifySample = defaultVerifySample
		}
		if s.ConcurrentFetches <= 0 {
			s.ConcurrentFetches = defaultConcurrentFetches
		}
		if s.RetryInterval <= 0 {
			s.RetryInterval = defaultRetryInterval
		}
		u.settings = s
	}
}

// Logger injects a logging facility into the updater
func Logger(l *zap.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.l = l
		}
	}
}
