package mml

import (
	"fmt"
	"strings"
)

const (
	tagPartOpen      = "<#part"
	tagPartClose     = "<#/part>"
	tagMultiOpen     = "<#multipart"
	tagMultiClose    = "<#/multipart>"
)

// tagMatch is one occurrence of a recognized tag marker found while
// scanning for the next point of interest.
type tagMatch struct {
	index int
	kind  string // one of the tag* constants above
}

// nextTag finds the earliest occurrence, at or after from, of any marker
// in markers. Escaped markup ("<#!part", "<#!/part>", ...) never matches
// because it does not contain the unescaped substring at all: the "!"
// breaks the literal match, so no explicit skip logic is needed here.
func nextTag(s string, from int, markers ...string) (tagMatch, bool) {
	best := tagMatch{index: -1}
	for _, m := range markers {
		idx := strings.Index(s[from:], m)
		if idx < 0 {
			continue
		}
		idx += from
		if best.index == -1 || idx < best.index {
			best = tagMatch{index: idx, kind: m}
		}
	}
	if best.index == -1 {
		return tagMatch{}, false
	}
	return best, true
}

// parseTagHeader extracts the property list from an opening tag and
// returns the index just past its closing '>'. s[start:] must begin with
// either tagPartOpen or tagMultiOpen.
func parseTagHeader(s string, start int) (props map[string]string, end int, ok bool) {
	closeIdx := strings.IndexByte(s[start:], '>')
	if closeIdx < 0 {
		return nil, 0, false
	}
	closeIdx += start

	var headerStart int
	if strings.HasPrefix(s[start:], tagMultiOpen) {
		headerStart = start + len(tagMultiOpen)
	} else {
		headerStart = start + len(tagPartOpen)
	}

	props = parseProps(s[headerStart:closeIdx])
	return props, skipOneNewline(s, closeIdx+1), true
}

// skipOneNewline advances pos past a single immediately-following '\n', if
// present. The grammar consumes exactly one newline after an opening tag
// and after a closing tag, so a blank line survives but the tag's own
// line break does not become part of the surrounding body.
func skipOneNewline(s string, pos int) int {
	if pos < len(s) && s[pos] == '\n' {
		return pos + 1
	}
	return pos
}

// parseProps splits a tag's attribute text ("type=text/html
// filename=~/rms.jpg") into a key/value map. Attributes are bare words
// with no quoting; a bare word with no "=" is ignored.
func parseProps(text string) map[string]string {
	props := make(map[string]string)
	for _, field := range strings.Fields(text) {
		key, value, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		props[key] = value
	}
	return props
}

// unescapeMMLMarkup reverses the escaping the interpreter applies to
// literal "<#part"/"<#/part>"/"<#multipart"/"<#/multipart>" sequences
// inside a plain-text body, so a round-tripped message doesn't
// reinterpret user text as MML tags.
func unescapeMMLMarkup(body string) string {
	r := strings.NewReplacer(
		"<#!part", "<#part",
		"<#!/part>", "<#/part>",
		"<#!multipart", "<#multipart",
		"<#!/multipart>", "<#/multipart>",
	)
	return r.Replace(body)
}

// escapeMMLMarkup is the inverse of unescapeMMLMarkup, applied by the
// interpreter when it renders a MIME text part back into MML so the
// literal text doesn't get mistaken for markup on a later compile.
func escapeMMLMarkup(body string) string {
	r := strings.NewReplacer(
		"<#part", "<#!part",
		"<#/part>", "<#!/part>",
		"<#multipart", "<#!multipart",
		"<#/multipart>", "<#!/multipart>",
	)
	return r.Replace(body)
}

// EscapeMarkup exposes escapeMMLMarkup to other packages (internal/template
// uses it to embed literal text, such as a signature, inside a freshly
// built <#part> tag without it being reinterpreted as markup).
func EscapeMarkup(body string) string { return escapeMMLMarkup(body) }

// spanMessage formats a parse error message with the Span it occurred at,
// so a caller surfacing the error to a user can point at the exact range
// of source that triggered it.
func spanMessage(msg string, start, end int) string {
	return fmt.Sprintf("%s (span %d-%d)", msg, start, end)
}
