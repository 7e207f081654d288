package template

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/mml"
	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/pgp"
)

// ForwardBuilder composes a forward draft from an existing message,
// grounded on original_source/email's ForwardTplBuilder. Unlike a
// reply, address routing is trivial: From is the account, To starts
// empty for the user to fill in.
type ForwardBuilder struct {
	config  model.AccountConfig
	msg     model.Message
	headers [][2]string
	body    string

	sigPlacement   *model.SignaturePlacement
	quotePlacement *QuotePlacement
	attachQuote    bool

	pgp       pgp.Provider
	pgpSender string
}

// NewForward creates a forward builder for msg from an account's
// configuration.
func NewForward(msg model.Message, config model.AccountConfig) *ForwardBuilder {
	return &ForwardBuilder{config: config, msg: msg}
}

func (b *ForwardBuilder) WithHeader(key, value string) *ForwardBuilder {
	b.headers = append(b.headers, [2]string{key, value})
	return b
}

func (b *ForwardBuilder) WithBody(body string) *ForwardBuilder {
	b.body = body
	return b
}

func (b *ForwardBuilder) WithSignaturePlacement(p model.SignaturePlacement) *ForwardBuilder {
	b.sigPlacement = &p
	return b
}

func (b *ForwardBuilder) WithQuotePlacement(p QuotePlacement) *ForwardBuilder {
	b.quotePlacement = &p
	return b
}

// WithAttachOriginal attaches the original message as a message/rfc822
// part instead of quoting it inline, mirroring the original's
// quote_placement.is_attached() branch.
func (b *ForwardBuilder) WithAttachOriginal(attach bool) *ForwardBuilder {
	b.attachQuote = attach
	return b
}

func (b *ForwardBuilder) WithPGP(provider pgp.Provider, sender string) *ForwardBuilder {
	b.pgp = provider
	b.pgpSender = sender
	return b
}

// Build renders the forward draft. ctx bounds any PGP verify/decrypt
// performed while rendering the quoted thread body.
func (b *ForwardBuilder) Build(ctx context.Context) (Result, error) {
	mr, err := mail.CreateReader(bytes.NewReader(b.msg.Raw))
	if err != nil {
		return Result{}, mailerr.Wrap(mailerr.KindParse, "parse message for forward", err)
	}
	subject, _ := mr.Header.Subject()
	messageID, _ := mr.Header.MessageID()

	w := &draftWriter{}
	w.header("From", fromHeader(b.config))
	w.header("To", "")
	w.header("Subject", "Fwd: "+prefixlessSubject(subject, "fwd"))
	for _, hh := range b.headers {
		w.header(hh[0], hh[1])
	}
	w.WriteByte('\n')
	w.line++

	placement := b.config.Template.SignaturePlacement
	if b.sigPlacement != nil {
		placement = *b.sigPlacement
	}
	quotePlacement := QuoteAboveReply
	if b.quotePlacement != nil {
		quotePlacement = *b.quotePlacement
	}
	sig, hasSig := signatureText(b.config)

	var out strings.Builder
	out.WriteByte('\n')

	if b.body != "" {
		out.WriteByte('\n')
		out.WriteString(b.body)
		out.WriteByte('\n')
	}
	if placement == model.SignatureAppend && hasSig {
		out.WriteByte('\n')
		out.WriteString(sig)
		out.WriteByte('\n')
	}
	if quotePlacement != QuoteNone && !b.attachQuote {
		thread, err := mml.Interpret(ctx, b.msg.Raw, mml.InterpretOptions{
			ShowHeaders: mml.HeaderFilter{
				Kind:    mml.HeadersInclude,
				Headers: []string{"Date", "From", "To", "Cc", "Subject"},
			},
			PGP:       b.pgp,
			PGPSender: b.pgpSender,
		})
		if err != nil {
			return Result{}, err
		}
		out.WriteByte('\n')
		out.WriteString("-------- Forwarded Message --------\n")
		out.WriteString(strings.TrimSpace(thread))
		out.WriteByte('\n')
	}

	w.WriteString(strings.TrimRight(out.String(), "\n") + "\n")

	if placement == model.SignatureAttach && hasSig {
		fmt.Fprintf(w, "<#part type=text/plain disposition=attachment>%s<#/part>\n", mml.EscapeMarkup(sig))
	}

	if quotePlacement != QuoteNone && b.attachQuote {
		name := "message.eml"
		if messageID != "" {
			name = messageID + ".eml"
		}
		// name= (not filename=) keeps the body inline: filename= would make
		// the compiler read the attachment from disk instead.
		fmt.Fprintf(w, "<#part type=message/rfc822 name=%s recipient-filename=%s disposition=attachment>", name, name)
		w.WriteString(mml.EscapeMarkup(string(b.msg.Raw)))
		w.WriteString("<#/part>")
	}

	return Result{MML: w.String()}, nil
}
