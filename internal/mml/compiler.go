package mml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/pgp"
	"github.com/fenilsonani/mailcore/internal/shellexpand"
)

// CompileOptions configures PGP signing/encryption hooks during
// compilation. PGP may be nil, in which case sign/encrypt props are
// ignored and the part compiles cleartext (original_source's
// try_sign_part/try_encrypt_part fall back to the cleartext part on any
// failure, including an absent provider).
type CompileOptions struct {
	PGP           pgp.Provider
	PGPSender     string
	PGPRecipients []string
}

// compiledNode is the MIME tree produced from an MML Part tree, one step
// short of being serialized: headers are fully decided, but transfer
// encoding of leaf bodies is left to the message.Writer that finally
// writes it, so CompileOptions.PGP only ever sees already-decided bytes.
type compiledNode struct {
	header   message.Header
	raw      []byte
	children []compiledNode
}

// Compile parses src as MML and writes the resulting MIME structure to
// w, using envelope as the outermost header (From/To/Subject/Date and
// friends are the caller's responsibility; Compile only ever sets
// Content-Type/Content-Transfer-Encoding/Content-Disposition on it).
func Compile(ctx context.Context, w io.Writer, envelope message.Header, src string, opts CompileOptions) error {
	parts, err := Parse(src)
	if err != nil {
		return err
	}
	node, err := compileParts(ctx, parts, opts)
	if err != nil {
		return err
	}
	return writeEntity(w, envelope, node)
}

func writeEntity(w io.Writer, envelope message.Header, node compiledNode) error {
	for _, key := range []string{"Content-Type", "Content-Transfer-Encoding", "Content-Disposition"} {
		if v := node.header.Get(key); v != "" {
			envelope.Set(key, v)
		}
	}
	mw, err := message.CreateWriter(w, envelope)
	if err != nil {
		return mailerr.Wrap(mailerr.KindIO, "create mime writer", err)
	}
	if err := writeNode(mw, node); err != nil {
		return err
	}
	return nil
}

func writeNode(mw *message.Writer, node compiledNode) error {
	if len(node.children) == 0 {
		if _, err := mw.Write(node.raw); err != nil {
			return mailerr.Wrap(mailerr.KindIO, "write mime part body", err)
		}
		return mw.Close()
	}
	for _, child := range node.children {
		pw, err := mw.CreatePart(child.header)
		if err != nil {
			return mailerr.Wrap(mailerr.KindIO, "create mime child part", err)
		}
		if err := writeNode(pw, child); err != nil {
			return err
		}
	}
	return mw.Close()
}

// compileParts implements the 0/1/many rule: no parts compile to an
// empty text body, one part compiles to itself directly, two or more
// are wrapped in multipart/mixed (original_source/mml's compile_parts).
func compileParts(ctx context.Context, parts []Part, opts CompileOptions) (compiledNode, error) {
	switch len(parts) {
	case 0:
		var h message.Header
		h.Set("Content-Type", `text/plain; charset="utf-8"`)
		h.Set("Content-Transfer-Encoding", "7bit")
		return compiledNode{header: h, raw: nil}, nil
	case 1:
		return compilePart(ctx, parts[0], opts)
	default:
		children := make([]compiledNode, 0, len(parts))
		for _, p := range parts {
			c, err := compilePart(ctx, p, opts)
			if err != nil {
				return compiledNode{}, err
			}
			children = append(children, c)
		}
		var h message.Header
		h.Set("Content-Type", "multipart/mixed")
		return compiledNode{header: h, children: children}, nil
	}
}

func compilePart(ctx context.Context, part Part, opts CompileOptions) (compiledNode, error) {
	switch part.Kind {
	case KindPlainText:
		var h message.Header
		h.Set("Content-Type", `text/plain; charset="utf-8"`)
		h.Set("Content-Transfer-Encoding", "7bit")
		return compiledNode{header: h, raw: []byte(unescapeMMLMarkup(part.Body))}, nil

	case KindSingle:
		return compileSinglePart(ctx, part, opts)

	case KindMulti:
		return compileMultiPart(ctx, part, opts)

	default:
		return compiledNode{}, mailerr.New(mailerr.KindParse, "unknown mml part kind")
	}
}

func compileMultiPart(ctx context.Context, part Part, opts CompileOptions) (compiledNode, error) {
	subtype := part.Props[PropType]
	switch subtype {
	case "alternative", "related":
	default:
		subtype = "mixed"
	}

	children := make([]compiledNode, 0, len(part.Children))
	for _, child := range part.Children {
		c, err := compilePart(ctx, child, opts)
		if err != nil {
			return compiledNode{}, err
		}
		children = append(children, c)
	}

	var h message.Header
	h.Set("Content-Type", fmt.Sprintf("multipart/%s", subtype))
	node := compiledNode{header: h, children: children}

	node = trySignPart(ctx, node, part.Props, opts)
	node = tryEncryptPart(ctx, node, part.Props, opts)
	return node, nil
}

func compileSinglePart(ctx context.Context, part Part, opts CompileOptions) (compiledNode, error) {
	var body []byte
	_, hasFilename := part.Props[PropFilename]
	if filename, ok := part.Props[PropFilename]; ok {
		path, err := shellexpand.Path(filename)
		if err != nil {
			return compiledNode{}, mailerr.Wrap(mailerr.KindIO, "expand attachment filename", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return compiledNode{}, mailerr.Wrap(mailerr.KindIO, "read attachment file", err)
		}
		body = data
	} else {
		body = []byte(part.Body)
	}

	contentType := part.Props[PropType]
	if contentType == "" {
		contentType = SniffType(body)
	}

	// Attachment bytes read from a file are carried as binary content and
	// never get a charset parameter, even for a text/* type; only a part
	// compiled from an inline literal body is treated as text.
	var h message.Header
	ctValue := contentType
	if !hasFilename && strings.HasPrefix(contentType, "text/") {
		ctValue += `; charset="utf-8"`
	}
	if name, ok := part.Props[PropName]; ok {
		ctValue += fmt.Sprintf(`; name="%s"`, name)
	}
	h.Set("Content-Type", ctValue)

	encoding := part.Props[PropEncoding]
	if encoding == "" {
		encoding = "7bit"
	}
	h.Set("Content-Transfer-Encoding", encoding)

	disposition := part.Props[PropDisposition]
	if disposition == "" {
		if _, hasFilename := part.Props[PropFilename]; hasFilename {
			disposition = "attachment"
		}
	}
	if disposition != "" {
		filename := part.Props[PropRecipientFilename]
		if filename == "" {
			if orig, ok := part.Props[PropFilename]; ok {
				filename = filepath.Base(orig)
			}
		}
		if filename == "" {
			filename = "noname"
		}
		h.Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, filename))
	}

	node := compiledNode{header: h, raw: body}
	node = trySignPart(ctx, node, part.Props, opts)
	node = tryEncryptPart(ctx, node, part.Props, opts)
	return node, nil
}

// trySignPart wraps node in multipart/signed if props request pgpmime
// signing and a provider is configured; any failure (missing provider,
// signing error) falls back to the cleartext node with a warning log,
// matching try_sign_part's swallow-and-log behavior.
func trySignPart(ctx context.Context, node compiledNode, props map[string]string, opts CompileOptions) compiledNode {
	if props[PropSign] != pgpmimeValue || opts.PGP == nil {
		return node
	}

	serialized, err := serializeNode(node)
	if err != nil {
		slog.WarnContext(ctx, "mml: failed to serialize part for pgp signing, sending cleartext", "error", err)
		return node
	}

	sig, err := opts.PGP.Sign(ctx, opts.PGPSender, serialized)
	if err != nil {
		slog.WarnContext(ctx, "mml: pgp sign failed, sending cleartext", "error", err)
		return node
	}

	var sigHeader message.Header
	sigHeader.Set("Content-Type", "application/pgp-signature")
	sigHeader.Set("Content-Transfer-Encoding", "7bit")

	var signedHeader message.Header
	signedHeader.Set("Content-Type", `multipart/signed; protocol="application/pgp-signature"; micalg="pgp-sha256"`)

	return compiledNode{
		header: signedHeader,
		children: []compiledNode{
			node,
			{header: sigHeader, raw: sig},
		},
	}
}

// tryEncryptPart wraps node in multipart/encrypted if props request
// pgpmime encryption and a provider is configured, falling back to the
// cleartext node on any failure.
func tryEncryptPart(ctx context.Context, node compiledNode, props map[string]string, opts CompileOptions) compiledNode {
	if props[PropEncrypt] != pgpmimeValue || opts.PGP == nil {
		return node
	}

	serialized, err := serializeNode(node)
	if err != nil {
		slog.WarnContext(ctx, "mml: failed to serialize part for pgp encryption, sending cleartext", "error", err)
		return node
	}

	ciphertext, err := opts.PGP.Encrypt(ctx, opts.PGPRecipients, serialized)
	if err != nil {
		slog.WarnContext(ctx, "mml: pgp encrypt failed, sending cleartext", "error", err)
		return node
	}

	var verHeader message.Header
	verHeader.Set("Content-Type", "application/pgp-encrypted")
	verHeader.Set("Content-Transfer-Encoding", "7bit")

	var dataHeader message.Header
	dataHeader.Set("Content-Type", "application/octet-stream")
	dataHeader.Set("Content-Transfer-Encoding", "7bit")

	var encHeader message.Header
	encHeader.Set("Content-Type", `multipart/encrypted; protocol="application/pgp-encrypted"`)

	return compiledNode{
		header: encHeader,
		children: []compiledNode{
			{header: verHeader, raw: []byte("Version: 1")},
			{header: dataHeader, raw: ciphertext},
		},
	}
}

// serializeNode renders node (headers and body, recursively) to bytes so
// it can be handed to a PGP provider as the exact content to sign or
// encrypt.
func serializeNode(node compiledNode) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeEntity(&buf, message.Header{}, node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
