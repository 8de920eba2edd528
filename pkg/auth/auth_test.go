package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/auth/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
)

func TestStatic(t *testing.T) {
	want := model.Credentials{AccessKey: "AKIA", SecretKey: "shh"}
	got, err := Static(want).Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRefreshingCaches(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var renewals int
	inner := ProviderFunc(func(context.Context) (model.Credentials, error) {
		renewals++
		return model.Credentials{
			AccessKey: fmt.Sprintf("AKIA%d", renewals),
			ExpiresAt: now.Add(time.Hour),
		}, nil
	})

	p := Refreshing(inner, 5*time.Minute).(*refreshing)
	p.now = func() time.Time { return now }

	creds, err := p.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA1", creds.AccessKey)

	// still fresh: no renewal
	creds, err = p.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA1", creds.AccessKey)
	assert.Equal(t, 1, renewals)

	// within the expiry margin: renewed
	now = now.Add(56 * time.Minute)
	creds, err = p.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA2", creds.AccessKey)
	assert.Equal(t, 2, renewals)
}

func TestRefreshingRenewalFailure(t *testing.T) {
	inner := ProviderFunc(func(context.Context) (model.Credentials, error) {
		return model.Credentials{}, fmt.Errorf("access denied")
	})

	_, err := Refreshing(inner, 0).Credentials(context.Background())
	require.ErrorIs(t, err, status.ErrAuthExpired)
}

func TestRefreshingNoExpiry(t *testing.T) {
	// credentials without an expiration never trigger a renewal
	var renewals int
	inner := ProviderFunc(func(context.Context) (model.Credentials, error) {
		renewals++
		return model.Credentials{AccessKey: "AKIA"}, nil
	})

	p := Refreshing(inner, time.Minute)
	for i := 0; i < 3; i++ {
		_, err := p.Credentials(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, renewals)
}

func TestCredentialsExpired(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	var c model.Credentials
	assert.False(t, c.Expired(now, time.Hour))

	c.ExpiresAt = now.Add(10 * time.Minute)
	assert.False(t, c.Expired(now, 5*time.Minute))
	assert.True(t, c.Expired(now, 10*time.Minute))
	assert.True(t, c.Expired(now.Add(time.Hour), 0))
}
