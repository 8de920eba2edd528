// Package status exports errors produced by the auth package.
package status

import (
	"github.com/developmentseed/mursst-icechunk-updater/pkg/errors"
)

var (
	// ErrAuthExpired indicates credentials expired and could not be
	// refreshed. Retryable: a later refresh attempt may succeed.
	ErrAuthExpired = errors.New("credentials expired and refresh failed")

	// ErrSecretFormat indicates the managed secret does not hold the
	// expected JSON document
	ErrSecretFormat = errors.New("secret has unexpected format")
)
