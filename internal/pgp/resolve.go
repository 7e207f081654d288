package pgp

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

// resolveSecretKey loads the account's own secret key per cfg.Kind.
// keyring may be nil; it is only consulted for SecretKeyKeyring.
func resolveSecretKey(cfg model.SecretKeySource, keyring SecretKeyring) (openpgp.EntityList, error) {
	switch cfg.Kind {
	case model.SecretKeyRaw:
		return openpgp.ReadArmoredKeyRing(strings.NewReader(cfg.Value))
	case model.SecretKeyFile:
		f, err := os.Open(cfg.Value)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindIO, "open secret key file", err)
		}
		defer f.Close()
		return openpgp.ReadArmoredKeyRing(f)
	case model.SecretKeyKeyring:
		if keyring == nil {
			return nil, mailerr.New(mailerr.KindConfiguration, "secret key source is keyring but no keyring was configured")
		}
		raw, err := keyring.SecretKey(cfg.Value)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindConfiguration, "read secret key from keyring", err)
		}
		return openpgp.ReadArmoredKeyRing(strings.NewReader(string(raw)))
	default:
		return nil, mailerr.New(mailerr.KindConfiguration, "unknown secret key source kind")
	}
}

// resolvePublicKeys walks cfg's sources in order for addr, returning the
// first source that yields a key ring.
func resolvePublicKeys(ctx context.Context, cfg []model.PublicKeySource, addr string) (openpgp.EntityList, error) {
	var lastErr error
	for _, src := range cfg {
		var (
			keys openpgp.EntityList
			err  error
		)
		switch src.Kind {
		case model.PublicKeyRawMapping:
			armored, ok := src.RawMapping[addr]
			if !ok {
				err = fmt.Errorf("no raw mapping entry for %s", addr)
				break
			}
			keys, err = openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
		case model.PublicKeyWKD:
			keys, err = lookupWKD(ctx, addr)
		case model.PublicKeyHKP:
			keys, err = lookupHKP(ctx, src.HKPServers, addr)
		default:
			err = fmt.Errorf("unknown public key source kind")
		}
		if err == nil && len(keys) > 0 {
			return keys, nil
		}
		lastErr = err
	}
	return nil, mailerr.Wrap(mailerr.KindPGP, fmt.Sprintf("no public key source resolved a key for %s", addr), lastErr)
}

// lookupHKP queries each keyserver in order until one returns a key,
// using the machine-readable lookup endpoint (RFC draft-shaw-openpgp-hkp,
// "mr" option) rather than the human HTML form.
func lookupHKP(ctx context.Context, servers []string, addr string) (openpgp.EntityList, error) {
	var lastErr error
	for _, server := range servers {
		url := fmt.Sprintf("%s/pks/lookup?op=get&options=mr&search=%s", strings.TrimRight(server, "/"), addr)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("hkp %s: status %d", server, resp.StatusCode)
			continue
		}
		keys, err := openpgp.ReadArmoredKeyRing(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return keys, nil
	}
	return nil, lastErr
}
