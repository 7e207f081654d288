package template

import (
	"fmt"
	"strings"

	"github.com/fenilsonani/mailcore/internal/mml"
	"github.com/fenilsonani/mailcore/internal/model"
)

// NewBuilder composes a draft for a brand-new message, grounded on
// original_source/email's NewTplBuilder.
type NewBuilder struct {
	config  model.AccountConfig
	headers [][2]string
	body    string
	sigPlacement *model.SignaturePlacement
}

// NewNew creates a builder for a brand-new message from an account's
// configuration.
func NewNew(config model.AccountConfig) *NewBuilder {
	return &NewBuilder{config: config}
}

// WithHeader appends one additional header line to the draft, following
// the builder pattern.
func (b *NewBuilder) WithHeader(key, value string) *NewBuilder {
	b.headers = append(b.headers, [2]string{key, value})
	return b
}

// WithBody sets the draft's initial body text.
func (b *NewBuilder) WithBody(body string) *NewBuilder {
	b.body = body
	return b
}

// WithSignaturePlacement overrides the account's configured signature
// placement for this draft only.
func (b *NewBuilder) WithSignaturePlacement(p model.SignaturePlacement) *NewBuilder {
	b.sigPlacement = &p
	return b
}

// Build renders the draft and its initial cursor position.
func (b *NewBuilder) Build() (Result, error) {
	placement := b.config.Template.SignaturePlacement
	if b.sigPlacement != nil {
		placement = *b.sigPlacement
	}
	sig, hasSig := signatureText(b.config)

	w := &draftWriter{}
	w.header("From", fromHeader(b.config))
	w.header("To", "")
	w.header("Subject", "")
	for _, h := range b.headers {
		w.header(h[0], h[1])
	}
	w.WriteByte('\n')
	w.line++

	line := w.line
	column := 0

	body := strings.TrimSpace(b.body)
	var out strings.Builder
	if body != "" {
		out.WriteString(body)
		if idx := strings.LastIndexByte(body, '\n'); idx >= 0 {
			left := strings.TrimSpace(body[:idx])
			right := body[idx+1:]
			if left != "" {
				line += len(strings.Split(left, "\n"))
			}
			column = len(right)
		} else {
			column = len(body)
		}
	}
	out.WriteByte('\n')

	if placement == model.SignatureAppend && hasSig {
		out.WriteByte('\n')
		out.WriteString(sig)
	}

	w.WriteString(out.String())

	if placement == model.SignatureAttach && hasSig {
		fmt.Fprintf(w, "<#part type=text/plain disposition=attachment>%s<#/part>", mml.EscapeMarkup(sig))
	}

	return Result{MML: w.String(), Line: line, Column: column}, nil
}
