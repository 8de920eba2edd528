// Package auth models access credentials as an explicit capability.
//
// Components needing remote access receive a Provider; the Refreshing
// adapter makes mid-run expiry transparent so callers never check expiry
// themselves.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/auth/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
)

// Provider is the capability to obtain credentials for remote access
type Provider interface {
	Credentials(ctx context.Context) (model.Credentials, error)
}

// ProviderFunc adapts a plain function into a Provider
type ProviderFunc func(ctx context.Context) (model.Credentials, error)

func (f ProviderFunc) Credentials(ctx context.Context) (model.Credentials, error) {
	return f(ctx)
}

// Static yields fixed credentials, e.g. sourced from the local environment
// when running outside the managed setup
func Static(creds model.Credentials) Provider {
	return ProviderFunc(func(context.Context) (model.Credentials, error) {
		return creds, nil
	})
}

const defaultExpiryMargin = 5 * time.Minute

// Refreshing wraps a provider with transparent refresh: credentials are
// cached and renewed before they expire, with a safety margin. A failed
// renewal surfaces as status.ErrAuthExpired.
func Refreshing(p Provider, margin time.Duration) Provider {
	if margin <= 0 {
		margin = defaultExpiryMargin
	}
	return &refreshing{inner: p, margin: margin, now: time.Now}
}

type refreshing struct {
	mu     sync.Mutex
	inner  Provider
	margin time.Duration
	cached model.Credentials
	valid  bool
	now    func() time.Time
}

func (r *refreshing) Credentials(ctx context.Context) (model.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.valid && !r.cached.Expired(r.now(), r.margin) {
		return r.cached, nil
	}

	creds, err := r.inner.Credentials(ctx)
	if err != nil {
		r.valid = false
		return model.Credentials{}, status.ErrAuthExpired.Wrap(err)
	}
	r.cached = creds
	r.valid = true
	return creds, nil
}
