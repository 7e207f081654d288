// Package template builds editable MML drafts for composing new
// messages, replies, and forwards, grounded on
// original_source/email/src/email/message/template's
// NewTplBuilder/ReplyTplBuilder/ForwardTplBuilder. A draft is plain MML
// text a composer can further edit before handing it to internal/mml's
// compiler; this package never touches MIME itself.
package template

import (
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/fenilsonani/mailcore/internal/model"
)

// Result is a composed draft together with the cursor position a
// composer should place the caret at, mirroring
// Template::new_with_cursor from the reference template module. Line and
// Column are both zero-indexed.
type Result struct {
	MML    string
	Line   int
	Column int
}

// QuotePlacement controls where a reply or forward places the quoted
// thread body relative to the user's own new text. The reference
// modules split this further (above/below/attach/nowhere per template
// kind); TemplateConfig only carries a single, uniform
// model.SignaturePlacement, so quote placement is modeled the same way
// here: three values shared between Reply and Forward, defaulting to
// QuoteAboveReply. Documented in DESIGN.md as a deliberate
// simplification of the reference's finer-grained placement enums.
type QuotePlacement int

const (
	QuoteAboveReply QuotePlacement = iota
	QuoteBelowReply
	QuoteNone
)

// defaultNoReplyPattern matches the common shapes of a no-reply sender
// address (no_reply, noreply, do-not.reply, ...), used to drop such
// addresses from a reply's Cc line. A configured
// model.TemplateConfig.NoReplyPattern overrides it.
const defaultNoReplyPattern = `(?i:not?[_\-.]?reply)`

func noReplyRegexp(pattern string) *regexp.Regexp {
	if pattern == "" {
		pattern = defaultNoReplyPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = regexp.MustCompile(defaultNoReplyPattern)
	}
	return re
}

// prefixlessSubjectRegexp strips one or more "<prefix>:" markers (case
// and whitespace insensitive) from the front of a subject line, e.g.
// "re", "Re   ", "RE" for replies or "fwd", "Fwd" for forwards.
func prefixlessSubjectRegexp(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`(?i:\s*` + prefix + `\s*:\s*)*(.*)`)
}

func prefixlessSubject(subject, prefix string) string {
	re := prefixlessSubjectRegexp(prefix)
	m := re.FindStringSubmatch(subject)
	if m == nil {
		return subject
	}
	return m[1]
}

// draftWriter renders a sequence of "Key: Value\n" lines, counting
// lines as it goes so callers can keep a running cursor position.
type draftWriter struct {
	strings.Builder
	line int
}

func (d *draftWriter) header(key, value string) {
	d.WriteString(key)
	d.WriteString(": ")
	d.WriteString(value)
	d.WriteByte('\n')
	d.line++
}

func fromHeader(cfg model.AccountConfig) string {
	return model.Mailbox{Name: cfg.DisplayName, Addr: cfg.Email}.String()
}

func addressListHeader(addrs []model.Mailbox) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// signatureText returns the account's trimmed signature and whether it
// has any content worth placing.
func signatureText(cfg model.AccountConfig) (string, bool) {
	sig := strings.TrimSpace(cfg.Template.Signature)
	return sig, sig != ""
}

// addressListContains reports whether any address in list shares addr's
// address (case-insensitive, mailbox-part comparison only).
func addressListContains(list []*mail.Address, addr string) bool {
	for _, a := range list {
		if strings.EqualFold(a.Address, addr) {
			return true
		}
	}
	return false
}

// addressListEqual reports whether a and b contain the same set of
// addresses, ignoring display names and order.
func addressListEqual(a, b []*mail.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !addressListContains(b, x.Address) {
			return false
		}
	}
	return true
}

// addressListString renders a list of addresses as a comma-separated
// header value.
func addressListString(list []*mail.Address) string {
	parts := make([]string, len(list))
	for i, a := range list {
		parts[i] = model.Mailbox{Name: a.Name, Addr: a.Address}.String()
	}
	return strings.Join(parts, ", ")
}
