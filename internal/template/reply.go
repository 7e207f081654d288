package template

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/mml"
	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/pgp"
)

// ReplyBuilder composes a reply draft from an existing message, grounded
// on original_source/email's ReplyTplBuilder: recipient routing
// (Sender/From/To/Reply-To preference), an opt-in Cc expansion for
// reply-all, no-reply address filtering, and a quoted thread body.
type ReplyBuilder struct {
	config  model.AccountConfig
	msg     model.Message
	headers [][2]string
	body    string
	replyAll bool

	sigPlacement   *model.SignaturePlacement
	quotePlacement *QuotePlacement

	pgp       pgp.Provider
	pgpSender string
}

// NewReply creates a reply builder for msg from an account's
// configuration.
func NewReply(msg model.Message, config model.AccountConfig) *ReplyBuilder {
	return &ReplyBuilder{config: config, msg: msg}
}

func (b *ReplyBuilder) WithHeader(key, value string) *ReplyBuilder {
	b.headers = append(b.headers, [2]string{key, value})
	return b
}

func (b *ReplyBuilder) WithBody(body string) *ReplyBuilder {
	b.body = body
	return b
}

// WithReplyAll expands the Cc line to every other recipient of the
// original message, following the builder pattern.
func (b *ReplyBuilder) WithReplyAll(all bool) *ReplyBuilder {
	b.replyAll = all
	return b
}

func (b *ReplyBuilder) WithSignaturePlacement(p model.SignaturePlacement) *ReplyBuilder {
	b.sigPlacement = &p
	return b
}

func (b *ReplyBuilder) WithQuotePlacement(p QuotePlacement) *ReplyBuilder {
	b.quotePlacement = &p
	return b
}

// WithPGP decrypts/verifies the quoted thread body through provider,
// attributing signatures to sender.
func (b *ReplyBuilder) WithPGP(provider pgp.Provider, sender string) *ReplyBuilder {
	b.pgp = provider
	b.pgpSender = sender
	return b
}

// Build renders the reply draft. ctx bounds any PGP verify/decrypt
// performed while rendering the quoted thread body.
func (b *ReplyBuilder) Build(ctx context.Context) (Result, error) {
	mr, err := mail.CreateReader(bytes.NewReader(b.msg.Raw))
	if err != nil {
		return Result{}, mailerr.Wrap(mailerr.KindParse, "parse message for reply", err)
	}
	h := mr.Header

	from, _ := h.AddressList("From")
	to, _ := h.AddressList("To")
	cc, _ := h.AddressList("Cc")
	replyTo, _ := h.AddressList("Reply-To")
	sender, _ := h.AddressList("Sender")
	subject, _ := h.Subject()
	messageID, _ := h.MessageID()

	noReply := noReplyRegexp(b.config.Template.NoReplyPattern)
	me := &mail.Address{Name: b.config.DisplayName, Address: b.config.Email}

	iAmSender := addressListEqual(from, []*mail.Address{me})
	iAmRecipient := addressListContains(to, me.Address)
	replyToSet := len(replyTo) > 0

	var recipients []*mail.Address
	switch {
	case iAmSender:
		recipients = to
	case !iAmRecipient:
		if replyToSet {
			recipients = replyTo
		} else {
			recipients = to
		}
	case replyToSet:
		recipients = replyTo
	case len(from) > 0:
		recipients = from
	default:
		recipients = sender
	}

	ccPool := cc
	if b.replyAll {
		ccPool = append(append([]*mail.Address{}, to...), cc...)
	}
	ccAddrs := b.computeCc(iAmRecipient, replyToSet, from, sender, recipients, ccPool, me, noReply)

	w := &draftWriter{}
	if messageID != "" {
		w.header("In-Reply-To", "<"+messageID+">")
	}
	w.header("From", fromHeader(b.config))
	w.header("To", addressListString(recipients))
	if len(ccAddrs) > 0 {
		w.header("Cc", addressListString(ccAddrs))
	}
	w.header("Subject", "Re: "+prefixlessSubject(subject, "re"))
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

	thread, err := mml.Interpret(ctx, b.msg.Raw, mml.InterpretOptions{
		ShowHeaders: mml.HeaderFilter{Kind: mml.HeadersInclude},
		PGP:         b.pgp,
		PGPSender:   b.pgpSender,
	})
	if err != nil {
		return Result{}, err
	}

	headline := ""
	if date, err := h.Date(); err == nil && len(from) > 0 {
		headline = fmt.Sprintf("On %s, %s wrote:\n", date.Format("Mon, 2 Jan 2006 15:04:05 -0700"), from[0].String())
	}

	var out strings.Builder
	out.WriteString("\n\n")

	if quotePlacement == QuoteAboveReply {
		writeQuote(&out, headline, thread)
	}
	if b.body != "" {
		out.WriteString(b.body)
		out.WriteByte('\n')
	}
	if placement == model.SignatureAppend && hasSig {
		out.WriteByte('\n')
		out.WriteString(sig)
	}
	if quotePlacement == QuoteBelowReply {
		writeQuote(&out, headline, thread)
	}

	w.WriteString(strings.TrimRight(out.String(), "\n") + "\n")

	if placement == model.SignatureAttach && hasSig {
		fmt.Fprintf(w, "<#part type=text/plain disposition=attachment>%s<#/part>", mml.EscapeMarkup(sig))
	}

	return Result{MML: w.String()}, nil
}

func writeQuote(out *strings.Builder, headline, thread string) {
	if headline != "" {
		out.WriteString(headline)
	}
	for _, line := range strings.Split(strings.TrimSpace(thread), "\n") {
		out.WriteByte('>')
		if !strings.HasPrefix(line, ">") {
			out.WriteByte(' ')
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
}

// computeCc expands the Cc line with the remaining recipients of the
// original message: the rest of its From (or Sender, when From is
// empty) when the reader wasn't a direct recipient and no Reply-To
// steered elsewhere, plus the rest of cc when replyAll is set (Build then
// passes the original To and Cc together as cc).
// No-reply-looking addresses and anything already covered by
// recipients/From/Sender/Reply-To are skipped, mirroring the dedup
// chain in ReplyTplBuilder::build.
func (b *ReplyBuilder) computeCc(
	iAmRecipient, replyToSet bool,
	from, sender, recipients, cc []*mail.Address,
	me *mail.Address, noReply *regexp.Regexp) []*mail.Address {
	var out []*mail.Address
	add := func(addrs []*mail.Address, skipDupesAgainst ...[]*mail.Address) {
		for _, a := range addrs {
			if strings.EqualFold(a.Address, me.Address) {
				continue
			}
			if addressListContains(out, a.Address) {
				continue
			}
			dup := false
			for _, against := range skipDupesAgainst {
				if addressListContains(against, a.Address) {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			if noReply.MatchString(a.Address) {
				continue
			}
			out = append(out, a)
		}
	}

	if !iAmRecipient && !replyToSet {
		if len(from) > 0 {
			add(from, recipients)
		} else {
			add(sender, recipients)
		}
	}

	if b.replyAll {
		add(cc, recipients, from, sender)
	}

	return out
}
