// Package smtp adapts github.com/emersion/go-smtp's client side into the
// backend capability layer. Unlike the other adapters,
// Notmuch and Maildir and IMAP all read message state back; SMTP is
// write-only here, offering exactly one feature: SendMessage.
package smtp

import (
	"bytes"
	"context"
	"crypto"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-msgauth/dkim"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/fenilsonani/mailcore/internal/backend"
	"github.com/fenilsonani/mailcore/internal/mailerr"
)

// Config holds the connection parameters for an outbound SMTP relay.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// StartTLS selects STARTTLS negotiation over a plaintext connection
	// (typically port 587) instead of implicit TLS (typically port 465).
	StartTLS bool
	// DKIM, if non-nil, signs every outbound message before delivery.
	DKIM *DKIMConfig
}

// DKIMConfig holds the parameters needed to attach a DKIM-Signature header
// to an outbound message.
type DKIMConfig struct {
	// Domain is the signing domain (the "d=" tag).
	Domain string
	// Selector names the DNS TXT record carrying the public key ("s=" tag).
	Selector string
	// Signer produces the signature; an *rsa.PrivateKey or
	// ed25519.PrivateKey both satisfy crypto.Signer.
	Signer crypto.Signer
}

// Context holds the dial parameters needed to open an SMTP connection.
// Unlike the IMAP context, no connection is kept open between sends:
// SMTP relays commonly drop idle connections, so each SendMessage call
// dials fresh, matching the ephemeral-connection approach the example
// corpus uses for outbound mail.
type Context struct {
	cfg Config
}

var _ backend.Context = (*Context)(nil)

func (c *Context) Close() error { return nil }

// Builder implements backend.ContextBuilder for SMTP.
type Builder struct {
	cfg Config
}

// NewBuilder constructs an SMTP context builder from cfg.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

func (b *Builder) Clone() backend.ContextBuilder {
	clone := *b
	return &clone
}

func (b *Builder) Build(ctx context.Context) (backend.Context, error) {
	return &Context{cfg: b.cfg}, nil
}

func (b *Builder) Feature(name backend.FeatureName) backend.FeatureFactory {
	if name != backend.FeatureSendMessage {
		return nil
	}
	return func(c backend.Context) (any, bool) {
		ctx, ok := c.(*Context)
		if !ok {
			return nil, false
		}
		return (*sendMessageFeature)(ctx), true
	}
}

type sendMessageFeature Context

// SendMessage dials the configured relay, authenticates if credentials
// are set, and delivers raw (a complete RFC 5322 message) to every
// address found in its To/Cc/Bcc headers.
func (f *sendMessageFeature) SendMessage(ctx context.Context, raw []byte) error {
	cfg := f.cfg
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	from, recipients, err := parseEnvelope(raw)
	if err != nil {
		return mailerr.Wrap(mailerr.KindParse, "parse outbound message", err)
	}
	if len(recipients) == 0 {
		return mailerr.New(mailerr.KindProtocol, "message has no recipients")
	}

	if cfg.DKIM != nil {
		raw, err = signDKIM(raw, cfg.DKIM)
		if err != nil {
			return mailerr.Wrap(mailerr.KindProtocol, "DKIM sign outbound message", err)
		}
	}

	client, err := dial(ctx, cfg, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return mailerr.Wrap(mailerr.KindTransport, "EHLO", err)
	}

	if cfg.StartTLS {
		tlsCfg := &tls.Config{ServerName: cfg.Host}
		if err := client.StartTLS(tlsCfg); err != nil {
			return mailerr.Wrap(mailerr.KindTransport, "STARTTLS", err)
		}
	}

	if cfg.Username != "" {
		auth := sasl.NewPlainClient("", cfg.Username, cfg.Password)
		if err := client.Auth(auth); err != nil {
			return mailerr.Wrap(mailerr.KindAuthentication, "SMTP AUTH", err)
		}
	}

	if err := client.Mail(from, nil); err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "MAIL FROM", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return mailerr.Wrap(mailerr.KindProtocol, "RCPT TO "+rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "DATA", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return mailerr.Wrap(mailerr.KindIO, "write message body", err)
	}
	if err := w.Close(); err != nil {
		return mailerr.Wrap(mailerr.KindIO, "close DATA", err)
	}

	return client.Quit()
}

// signDKIM prepends a DKIM-Signature header to raw, signing every header
// of the message plus the body over relaxed/relaxed canonicalization.
func signDKIM(raw []byte, cfg *DKIMConfig) ([]byte, error) {
	var buf bytes.Buffer
	options := &dkim.SignOptions{
		Domain:                 cfg.Domain,
		Selector:               cfg.Selector,
		Signer:                 cfg.Signer,
		HeaderCanonicalization: dkim.CanonicalizationRelaxed,
		BodyCanonicalization:   dkim.CanonicalizationRelaxed,
	}
	if err := dkim.Sign(&buf, bytes.NewReader(raw), options); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dial(ctx context.Context, cfg Config, addr string) (*gosmtp.Client, error) {
	if cfg.StartTLS {
		client, err := gosmtp.Dial(addr)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindTransport, "dial "+addr, err)
		}
		return client, nil
	}
	client, err := gosmtp.DialTLS(addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindTransport, "dial TLS "+addr, err)
	}
	return client, nil
}

// parseEnvelope extracts the bare From address and the union of
// To/Cc/Bcc addresses from a raw RFC 5322 message's headers.
func parseEnvelope(raw []byte) (from string, recipients []string, err error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", nil, err
	}
	header := mr.Header

	fromList, err := header.AddressList("From")
	if err != nil {
		return "", nil, err
	}
	if len(fromList) == 0 {
		return "", nil, mailerr.New(mailerr.KindProtocol, "message has no From header")
	}
	from = fromList[0].Address

	seen := map[string]bool{}
	for _, field := range []string{"To", "Cc", "Bcc"} {
		addrs, err := header.AddressList(field)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if !seen[a.Address] {
				seen[a.Address] = true
				recipients = append(recipients, a.Address)
			}
		}
	}
	return from, recipients, nil
}
