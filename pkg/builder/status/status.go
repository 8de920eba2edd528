// Package status exports errors produced by the builder package.
package status

import (
	"github.com/developmentseed/mursst-icechunk-updater/pkg/errors"
)

var (
	// ErrGranuleUnreadable indicates the structural metadata of a granule
	// could not be retrieved or parsed. Per granule, non fatal.
	ErrGranuleUnreadable = errors.New("granule metadata unreadable")

	// ErrUnsupportedScheme indicates a source URI scheme no resolver is
	// registered for
	ErrUnsupportedScheme = errors.New("unsupported source uri scheme")
)
