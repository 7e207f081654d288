// Package pgp implements the three PGP provider shapes an account can
// select: shelling out to gpg, a native Go implementation
// over ProtonMail/go-crypto, and a disabled provider that rejects every
// operation with an error. Key resolution
// (secret key loading, recipient public key lookup chains including WKD)
// lives alongside, grounded on original_source/pgp.
package pgp

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

// Provider signs, verifies, encrypts, and decrypts message bytes on
// behalf of one account. All four operations work on already-serialized
// bytes (a MIME part's content); internal/mml wires the armored result
// back into the compiled message tree.
type Provider interface {
	Sign(ctx context.Context, sender string, data []byte) ([]byte, error)
	Verify(ctx context.Context, signer string, data, signature []byte) (bool, error)
	Encrypt(ctx context.Context, recipients []string, data []byte) ([]byte, error)
	Decrypt(ctx context.Context, data []byte) ([]byte, error)
}

// New builds the Provider selected by cfg.Provider. keyring resolves
// SecretKeySourceKind values that need external key material not
// representable in model.PGPConfig (Keyring); it may be nil if the
// account never uses that source kind. accountName is passed through to
// cfg.SecretPassphrase.Passphrase when the native provider needs to
// unlock an encrypted secret key.
func New(cfg model.PGPConfig, accountName string, keyring SecretKeyring) (Provider, error) {
	switch cfg.Provider {
	case model.PGPDisabled:
		return disabledProvider{}, nil
	case model.PGPCommand:
		return newCommandProvider(cfg), nil
	case model.PGPNative:
		return newNativeProvider(cfg, accountName, keyring)
	default:
		return nil, mailerr.New(mailerr.KindConfiguration, "unknown pgp provider kind")
	}
}

// SecretKeyring resolves a keyring-backed secret key by the entry name
// stored in model.SecretKeySource.Value. A real implementation might back
// this with the OS keychain or pimalaya-keyring's Go equivalent; this
// package only defines the contract and treats OS keyring access as an
// external collaborator, like the OAuth2 token provider.
type SecretKeyring interface {
	SecretKey(entry string) ([]byte, error)
}
