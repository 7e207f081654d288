package pgp

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/mailerr"
)

// disabledProvider backs accounts with PGP turned off; every operation
// reports the capability as missing rather than silently no-opping, so
// callers that already tolerate mailerr.KindCapabilityMissing (like
// internal/sync's expunge path) treat it the same way as an adapter
// that simply doesn't implement a feature.
type disabledProvider struct{}

func (disabledProvider) Sign(ctx context.Context, sender string, data []byte) ([]byte, error) {
	return nil, mailerr.FeatureUnavailable("pgp sign (provider disabled)")
}

func (disabledProvider) Verify(ctx context.Context, signer string, data, signature []byte) (bool, error) {
	return false, mailerr.FeatureUnavailable("pgp verify (provider disabled)")
}

func (disabledProvider) Encrypt(ctx context.Context, recipients []string, data []byte) ([]byte, error) {
	return nil, mailerr.FeatureUnavailable("pgp encrypt (provider disabled)")
}

func (disabledProvider) Decrypt(ctx context.Context, data []byte) ([]byte, error) {
	return nil, mailerr.FeatureUnavailable("pgp decrypt (provider disabled)")
}
