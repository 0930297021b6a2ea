package service

import (
	"crypto/subtle"

	"donation-gateway/config"
	"donation-gateway/internal/core/ports"
)

// FeedAuth implements ports.FeedAuthenticator. A configured secret hash takes
// precedence over the plain secret. With neither configured every request is
// refused.
type FeedAuth struct {
	secret     []byte
	secretHash string
	hasher     ports.HashService
}

// NewFeedAuth creates a feed authenticator from configuration.
func NewFeedAuth(cfg config.FeedConfig, hasher ports.HashService) *FeedAuth {
	return &FeedAuth{
		secret:     []byte(cfg.Secret),
		secretHash: cfg.SecretHash,
		hasher:     hasher,
	}
}

// Authenticate reports whether token is the feed's shared secret.
func (a *FeedAuth) Authenticate(token string) bool {
	if token == "" {
		return false
	}
	if a.secretHash != "" {
		ok, err := a.hasher.Verify(token, a.secretHash)
		return err == nil && ok
	}
	if len(a.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), a.secret) == 1
}
