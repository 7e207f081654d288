package mml

import "github.com/fenilsonani/mailcore/internal/mailerr"

// Parse turns MML source into a sequence of top-level Parts, grounded on
// original_source/mml/src/message/body/compiler/parsers/parts.rs's
// parser-combinator grammar: plain text runs anywhere outside tags,
// <#part ...>...<#/part> single parts, and <#multipart ...>...
// <#/multipart> blocks that recurse to hold further parts. Parse rejects
// a <#part> tag that has neither inline body text nor a filename
// property: there would be nothing to compile a body from.
func Parse(src string) ([]Part, error) {
	parts, _, err := parseSequence(src, 0, false)
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// parseSequence consumes src starting at pos until EOF, or, when
// stopAtMultiClose is true, until it reaches a tagMultiClose marker for
// the enclosing multipart (which it consumes). It returns the parsed
// parts and the position just past the point it stopped at.
func parseSequence(src string, pos int, stopAtMultiClose bool) ([]Part, int, error) {
	var parts []Part

	for {
		markers := []string{tagPartOpen, tagMultiOpen}
		if stopAtMultiClose {
			markers = append(markers, tagMultiClose)
		}

		match, found := nextTag(src, pos, markers...)
		if !found {
			if text := src[pos:]; text != "" {
				parts = append(parts, Part{Kind: KindPlainText, Body: text})
			}
			return parts, len(src), nil
		}

		if text := src[pos:match.index]; text != "" {
			parts = append(parts, Part{Kind: KindPlainText, Body: text})
		}

		switch match.kind {
		case tagMultiClose:
			return parts, skipOneNewline(src, match.index+len(tagMultiClose)), nil

		case tagMultiOpen:
			props, bodyStart, ok := parseTagHeader(src, match.index)
			if !ok {
				parts = append(parts, Part{Kind: KindPlainText, Body: src[match.index:]})
				return parts, len(src), nil
			}
			children, next, err := parseSequence(src, bodyStart, true)
			if err != nil {
				return nil, 0, err
			}
			parts = append(parts, Part{Kind: KindMulti, Props: props, Children: children})
			pos = next

		case tagPartOpen:
			props, bodyStart, ok := parseTagHeader(src, match.index)
			if !ok {
				parts = append(parts, Part{Kind: KindPlainText, Body: src[match.index:]})
				return parts, len(src), nil
			}

			// The closing tag is optional: it only counts if it appears
			// before the next part/multipart open tag.
			closeMatch, closeFound := nextTag(src, bodyStart, tagPartClose)
			nextOpenMatch, nextOpenFound := nextTag(src, bodyStart, tagPartOpen, tagMultiOpen)
			if stopAtMultiClose {
				if m, ok := nextTag(src, bodyStart, tagMultiClose); ok {
					if !nextOpenFound || m.index < nextOpenMatch.index {
						nextOpenMatch, nextOpenFound = m, true
					}
				}
			}

			var body string
			var next int
			switch {
			case closeFound && (!nextOpenFound || closeMatch.index <= nextOpenMatch.index):
				body = src[bodyStart:closeMatch.index]
				next = skipOneNewline(src, closeMatch.index+len(tagPartClose))
			case nextOpenFound:
				body = src[bodyStart:nextOpenMatch.index]
				next = nextOpenMatch.index
			default:
				body = src[bodyStart:]
				next = len(src)
			}

			if body == "" {
				if _, hasFilename := props[PropFilename]; !hasFilename {
					span := Span{Start: match.index, End: next}
					return nil, 0, mailerr.New(mailerr.KindParse, spanMessage(
						"attachment part has no body and no filename property", span.Start, span.End))
				}
			}

			parts = append(parts, Part{Kind: KindSingle, Props: props, Body: body})
			pos = next
		}
	}
}
