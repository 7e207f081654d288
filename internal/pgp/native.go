package pgp

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

// nativeProvider implements PGP directly over go-crypto/openpgp rather
// than shelling out. Grounded on original_source/pgp/src/native.rs's free
// functions (encrypt/decrypt/sign/verify/select_pkey_for_encryption); the
// PgpNative struct in that file only wraps sign with a real
// implementation and leaves encrypt/decrypt/verify as unimplemented
// stubs, so those three are built fresh here against the same library
// shape the free functions use.
type nativeProvider struct {
	secretKeys  openpgp.EntityList
	passphrase  model.SecretProvider
	accountName string
	publicKeys  []model.PublicKeySource
}

func newNativeProvider(cfg model.PGPConfig, accountName string, keyring SecretKeyring) (*nativeProvider, error) {
	secretKeys, err := resolveSecretKey(cfg.SecretKey, keyring)
	if err != nil {
		return nil, err
	}
	return &nativeProvider{
		secretKeys:  secretKeys,
		passphrase:  cfg.SecretPassphrase,
		accountName: accountName,
		publicKeys:  cfg.PublicKeySources,
	}, nil
}

func (p *nativeProvider) decryptSecretKeys() error {
	if p.passphrase == nil {
		return nil
	}
	for _, e := range p.secretKeys {
		if e.PrivateKey == nil || !e.PrivateKey.Encrypted {
			continue
		}
		pass, err := p.passphrase.Passphrase(p.accountName)
		if err != nil {
			return mailerr.Wrap(mailerr.KindPGP, "resolve secret key passphrase", err)
		}
		if err := e.PrivateKey.Decrypt([]byte(pass)); err != nil {
			return mailerr.Wrap(mailerr.KindPGP, "decrypt secret key", err)
		}
	}
	return nil
}

func (p *nativeProvider) Sign(ctx context.Context, sender string, data []byte) ([]byte, error) {
	if err := p.decryptSecretKeys(); err != nil {
		return nil, err
	}
	signer := selectSigningEntity(p.secretKeys, sender)
	if signer == nil {
		return nil, mailerr.New(mailerr.KindPGP, "no secret key available to sign as "+sender)
	}
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, signer, bytes.NewReader(data), nil); err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "sign message", err)
	}
	return buf.Bytes(), nil
}

// Verify mirrors native.rs's verify, which returns Ok(false) rather than
// an error on signature mismatch; only I/O and key-parsing failures
// surface as errors here.
func (p *nativeProvider) Verify(ctx context.Context, signer string, data, signature []byte) (bool, error) {
	keys, err := resolvePublicKeys(ctx, p.publicKeys, signer)
	if err != nil {
		return false, err
	}
	block, err := armor.Decode(bytes.NewReader(signature))
	if err != nil {
		return false, mailerr.Wrap(mailerr.KindPGP, "decode armored signature", err)
	}
	_, err = openpgp.CheckDetachedSignature(keys, bytes.NewReader(data), block.Body, nil)
	return err == nil, nil
}

func (p *nativeProvider) Encrypt(ctx context.Context, recipients []string, data []byte) ([]byte, error) {
	var to openpgp.EntityList
	for _, addr := range recipients {
		keys, err := resolvePublicKeys(ctx, p.publicKeys, addr)
		if err != nil {
			return nil, err
		}
		to = append(to, selectEncryptionEntities(keys)...)
	}
	if len(to) == 0 {
		return nil, mailerr.New(mailerr.KindPGP, "no recipient public keys resolved")
	}

	var armored bytes.Buffer
	w, err := armor.Encode(&armored, "PGP MESSAGE", nil)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "open armor writer", err)
	}
	plaintext, err := openpgp.Encrypt(w, to, nil, nil, nil)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "encrypt message", err)
	}
	if _, err := plaintext.Write(data); err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "write plaintext to encryptor", err)
	}
	if err := plaintext.Close(); err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "close encryptor", err)
	}
	if err := w.Close(); err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "close armor writer", err)
	}
	return armored.Bytes(), nil
}

func (p *nativeProvider) Decrypt(ctx context.Context, data []byte) ([]byte, error) {
	if err := p.decryptSecretKeys(); err != nil {
		return nil, err
	}
	block, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "decode armored message", err)
	}
	md, err := openpgp.ReadMessage(block.Body, p.secretKeys, nil, nil)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "decrypt message", err)
	}
	plaintext, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindPGP, "read decrypted body", err)
	}
	return plaintext, nil
}

func selectSigningEntity(keys openpgp.EntityList, sender string) *openpgp.Entity {
	for _, e := range keys {
		for name := range e.Identities {
			if name == sender {
				return e
			}
		}
	}
	if len(keys) > 0 {
		return keys[0]
	}
	return nil
}

// selectEncryptionEntities prefers an entity's encryption-capable subkeys
// over its primary key, falling back to the primary key only when it is
// itself usable for encryption (select_pkey_for_encryption in
// native.rs). go-crypto's own Entity.EncryptionKey already implements
// this preference order, so this wraps the per-entity selection instead
// of reimplementing subkey flag inspection.
func selectEncryptionEntities(keys openpgp.EntityList) openpgp.EntityList {
	var usable openpgp.EntityList
	for _, e := range keys {
		if _, ok := e.EncryptionKey(time.Now()); ok {
			usable = append(usable, e)
		}
	}
	return usable
}
