// Package status exports errors produced by the catalog package.
package status

import (
	"github.com/developmentseed/mursst-icechunk-updater/pkg/errors"
)

var (
	// ErrCatalogUnavailable indicates a transport or service failure while
	// querying the catalog. The whole run may be retried.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrCatalogRequest indicates the catalog rejected the query. Not retryable.
	ErrCatalogRequest = errors.New("catalog rejected request")
)
