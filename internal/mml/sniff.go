package mml

import "bytes"

// sniffSignature is one magic-number rule tried in order by SniffType.
type sniffSignature struct {
	prefix      []byte
	contentType string
}

// magicNumbers covers the common attachment kinds a compiled MML message
// is likely to carry; anything unmatched falls back to
// application/octet-stream.
var magicNumbers = []sniffSignature{
	{[]byte("%PDF-"), "application/pdf"},
	{[]byte("\x89PNG\r\n\x1a\n"), "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("PK\x03\x04"), "application/zip"},
	{[]byte("PK\x05\x06"), "application/zip"},
	{[]byte("%!PS-Adobe"), "application/postscript"},
}

// SniffType determines a content type for raw bytes with no explicit
// `type` property, first by magic number, then by a text/html versus
// text/plain heuristic, matching the compiler's sniff-when-type-unset
// behavior (original_source/mml/src/message/body/compiler/mod.rs).
func SniffType(data []byte) string {
	for _, sig := range magicNumbers {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.contentType
		}
	}
	if looksLikeHTML(data) {
		return "text/html"
	}
	if isText(data) {
		return "text/plain"
	}
	return "application/octet-stream"
}

func looksLikeHTML(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	lower := bytes.ToLower(trimmed)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<body"))
}

// isText reports whether data contains no NUL bytes, a cheap but
// effective binary/text discriminator used when no better signal exists.
func isText(data []byte) bool {
	return !bytes.ContainsRune(data, 0)
}
