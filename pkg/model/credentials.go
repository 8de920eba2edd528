package model

import "time"

// Credentials is a short lived capability to read source granules and to
// write store metadata
type Credentials struct {
	AccessKey    string    `json:"accessKey" yaml:"accessKey"`
	SecretKey    string    `json:"secretKey" yaml:"secretKey"`
	SessionToken string    `json:"sessionToken,omitempty" yaml:"sessionToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt" yaml:"expiresAt"`
	_            struct{}
}

// Expired reports whether the credentials are no longer valid at the given
// instant, with a safety margin
func (c Credentials) Expired(now time.Time, margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(c.ExpiresAt)
}
