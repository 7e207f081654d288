package mml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/pgp"
)

// HeaderFilterKind selects which headers Interpret renders.
type HeaderFilterKind int

const (
	// HeadersAll renders every header present on the message.
	HeadersAll HeaderFilterKind = iota
	// HeadersInclude renders only the named headers, in the order given.
	HeadersInclude
	// HeadersExclude renders every header except the named ones.
	HeadersExclude
)

// HeaderFilter mirrors original_source/mml's FilterHeaders: a strategy
// for which message headers an interpreted MML document shows.
type HeaderFilter struct {
	Kind    HeaderFilterKind
	Headers []string
}

// InterpretOptions configures MIME -> MML interpretation.
type InterpretOptions struct {
	ShowHeaders HeaderFilter

	// ShowMultipartTags wraps each multipart node in an explicit
	// <#multipart ...>...<#/multipart> block instead of transparently
	// flattening it into the surrounding text.
	ShowMultipartTags bool

	// SaveAttachmentsDir, if non-empty, writes each attachment's content
	// to disk under this directory and references it from a <#part
	// filename=...> tag instead of inlining the bytes as text.
	SaveAttachmentsDir string

	// PGP verifies multipart/signed parts and decrypts multipart/encrypted
	// parts when set; PGPSender identifies the signer to look up a
	// verification key for.
	PGP       pgp.Provider
	PGPSender string
}

func (f HeaderFilter) includes(name string) bool {
	switch f.Kind {
	case HeadersInclude:
		for _, h := range f.Headers {
			if strings.EqualFold(h, name) {
				return true
			}
		}
		return false
	case HeadersExclude:
		for _, h := range f.Headers {
			if strings.EqualFold(h, name) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Interpret turns raw MIME message bytes into an MML document: a header
// block (filtered per opts.ShowHeaders) followed by a blank line and the
// interpreted body (original_source/mml/src/message/interpreter.rs).
func Interpret(ctx context.Context, raw []byte, opts InterpretOptions) (string, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", mailerr.Wrap(mailerr.KindParse, "parse mime message", err)
	}

	var out strings.Builder
	wroteHeader := false
	if opts.ShowHeaders.Kind == HeadersInclude {
		seen := make(map[string]bool)
		for _, name := range opts.ShowHeaders.Headers {
			if seen[strings.ToLower(name)] {
				continue
			}
			seen[strings.ToLower(name)] = true
			for fields := entity.Header.FieldsByKey(name); fields.Next(); {
				fmt.Fprintf(&out, "%s: %s\n", fields.Key(), fields.Value())
				wroteHeader = true
			}
		}
	} else {
		for fields := entity.Header.Fields(); fields.Next(); {
			key := fields.Key()
			if !opts.ShowHeaders.includes(key) {
				continue
			}
			fmt.Fprintf(&out, "%s: %s\n", key, fields.Value())
			wroteHeader = true
		}
	}
	if wroteHeader {
		out.WriteByte('\n')
	}

	body, err := interpretEntity(ctx, entity, opts)
	if err != nil {
		return "", err
	}
	out.WriteString(body)
	return out.String(), nil
}

func interpretEntity(ctx context.Context, entity *message.Entity, opts InterpretOptions) (string, error) {
	mediaType, params, _ := entity.Header.ContentType()

	switch {
	case strings.HasPrefix(mediaType, "multipart/signed"):
		return interpretSigned(ctx, entity, opts)
	case strings.HasPrefix(mediaType, "multipart/encrypted"):
		return interpretEncrypted(ctx, entity, opts)
	case strings.HasPrefix(mediaType, "multipart/"):
		return interpretMultipart(ctx, entity, mediaType, opts)
	case strings.HasPrefix(mediaType, "text/"):
		return interpretText(entity, mediaType, params)
	default:
		return interpretAttachment(entity, mediaType, params, opts)
	}
}

func interpretMultipart(ctx context.Context, entity *message.Entity, mediaType string, opts InterpretOptions) (string, error) {
	mr := entity.MultipartReader()
	if mr == nil {
		return "", mailerr.New(mailerr.KindParse, "multipart entity has no parts")
	}

	var children []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", mailerr.Wrap(mailerr.KindParse, "read multipart part", err)
		}
		child, err := interpretEntity(ctx, part, opts)
		if err != nil {
			return "", err
		}
		children = append(children, child)
	}

	if !opts.ShowMultipartTags {
		return strings.Join(children, ""), nil
	}

	subtype := strings.TrimPrefix(mediaType, "multipart/")
	var b strings.Builder
	fmt.Fprintf(&b, "<#multipart type=%s>", subtype)
	b.WriteString(strings.Join(children, ""))
	b.WriteString("<#/multipart>")
	return b.String(), nil
}

func interpretText(entity *message.Entity, mediaType string, params map[string]string) (string, error) {
	data, err := io.ReadAll(entity.Body)
	if err != nil {
		return "", mailerr.Wrap(mailerr.KindIO, "read text part body", err)
	}
	body := escapeMMLMarkup(string(data))
	if mediaType == "text/plain" {
		return body, nil
	}
	return fmt.Sprintf("<#part type=%s>%s<#/part>", mediaType, body), nil
}

func interpretAttachment(entity *message.Entity, mediaType string, params map[string]string, opts InterpretOptions) (string, error) {
	data, err := io.ReadAll(entity.Body)
	if err != nil {
		return "", mailerr.Wrap(mailerr.KindIO, "read attachment body", err)
	}

	filename := params["name"]
	if _, dispParams, err := mime.ParseMediaType(entity.Header.Get("Content-Disposition")); err == nil {
		if fn := dispParams["filename"]; fn != "" {
			filename = fn
		}
	}

	if opts.SaveAttachmentsDir != "" {
		if filename == "" {
			filename = "noname"
		}
		path := filepath.Join(opts.SaveAttachmentsDir, filename)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return "", mailerr.Wrap(mailerr.KindIO, "save attachment", err)
		}
		return fmt.Sprintf("<#part type=%s filename=%s><#/part>", mediaType, path), nil
	}

	return fmt.Sprintf("<#part type=%s disposition=attachment>%s<#/part>", mediaType, escapeMMLMarkup(string(data))), nil
}

func interpretSigned(ctx context.Context, entity *message.Entity, opts InterpretOptions) (string, error) {
	mr := entity.MultipartReader()
	if mr == nil {
		return "", mailerr.New(mailerr.KindParse, "multipart/signed entity has no parts")
	}
	signedPart, err := mr.NextPart()
	if err != nil {
		return "", mailerr.Wrap(mailerr.KindParse, "read signed part", err)
	}
	sigPart, err := mr.NextPart()
	if err != nil {
		return "", mailerr.Wrap(mailerr.KindParse, "read signature part", err)
	}

	// The signed part's body is read once into memory so it can both
	// feed the MML interpretation below and be handed to PGP.Verify as
	// the signed content. Re-verifying against these decoded bytes
	// rather than the exact transmitted form is a simplification: true
	// PGP/MIME verification needs the canonicalized original bytes, which
	// go-message's parsed Entity no longer carries verbatim once
	// decoded. Documented as a known gap rather than attempted
	// byte-exact reconstruction.
	signedBody, err := io.ReadAll(signedPart.Body)
	if err != nil {
		return "", mailerr.Wrap(mailerr.KindIO, "read signed part body", err)
	}
	signedEntity, err := message.New(signedPart.Header, bytes.NewReader(signedBody))
	if err != nil {
		return "", mailerr.Wrap(mailerr.KindParse, "rebuild signed entity", err)
	}

	body, err := interpretEntity(ctx, signedEntity, opts)
	if err != nil {
		return "", err
	}

	if opts.PGP == nil {
		return body, nil
	}

	sig, err := io.ReadAll(sigPart.Body)
	if err != nil {
		return body, nil
	}

	ok, err := opts.PGP.Verify(ctx, opts.PGPSender, signedBody, sig)
	if err != nil {
		slog.WarnContext(ctx, "mml: pgp verify failed", "error", err)
		return body + "\n[pgp: signature could not be verified]", nil
	}
	if !ok {
		return body + "\n[pgp: signature verification failed]", nil
	}
	return body + "\n[pgp: signature verified]", nil
}

func interpretEncrypted(ctx context.Context, entity *message.Entity, opts InterpretOptions) (string, error) {
	if opts.PGP == nil {
		return "[pgp: encrypted content, no provider configured]", nil
	}

	mr := entity.MultipartReader()
	if mr == nil {
		return "", mailerr.New(mailerr.KindParse, "multipart/encrypted entity has no parts")
	}
	if _, err := mr.NextPart(); err != nil {
		return "", mailerr.Wrap(mailerr.KindParse, "read pgp version part", err)
	}
	dataPart, err := mr.NextPart()
	if err != nil {
		return "", mailerr.Wrap(mailerr.KindParse, "read pgp encrypted data part", err)
	}
	ciphertext, err := io.ReadAll(dataPart.Body)
	if err != nil {
		return "", mailerr.Wrap(mailerr.KindIO, "read encrypted body", err)
	}

	plaintext, err := opts.PGP.Decrypt(ctx, ciphertext)
	if err != nil {
		slog.WarnContext(ctx, "mml: pgp decrypt failed", "error", err)
		return "[pgp: decryption failed]", nil
	}

	inner, err := message.Read(bytes.NewReader(plaintext))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", mailerr.Wrap(mailerr.KindParse, "parse decrypted message", err)
	}
	return interpretEntity(ctx, inner, opts)
}
