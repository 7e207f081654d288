// Package mml implements the MML (Mail Markup Language) compiler and
// interpreter: compiler.go turns an MML document into a MIME message,
// interpreter.go walks a MIME message back into MML text, and
// lexer.go/parser.go turn MML source into the Part tree both directions
// share. Grounded on original_source/mml.
package mml

// Part is one node of a parsed MML document. Exactly one of the three
// shapes is populated, selected by Kind.
type Part struct {
	Kind PartKind

	// Multi: a <#multipart ...>...<#/multipart> block.
	Props    map[string]string
	Children []Part

	// Single: a <#part ...>...<#/part> block. Body is the raw text
	// between the tags.
	Body string

	// PlainText: a run of text outside any tag. Body is the raw text.
}

// Span marks a byte range in the original MML source, used by parse
// errors to point at the offending tag.
type Span struct {
	Start, End int
}

type PartKind int

const (
	KindPlainText PartKind = iota
	KindSingle
	KindMulti
)

// Known property keys (original_source/mml/src/message/body/compiler/parsers/parts.rs).
const (
	PropType               = "type"
	PropFilename           = "filename"
	PropName               = "name"
	PropDescription        = "description"
	PropDisposition        = "disposition"
	PropEncoding           = "encoding"
	PropRecipientFilename  = "recipient-filename"
	PropSign               = "sign"
	PropEncrypt            = "encrypt"
)

// pgpmime is the only recognized value for sign/encrypt props; any other
// value is treated as "not set" rather than an error, matching the
// reference compiler's lenient prop handling.
const pgpmimeValue = "pgpmime"
