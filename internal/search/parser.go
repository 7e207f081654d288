package search

import (
	"strings"
	"time"

	"github.com/fenilsonani/mailcore/internal/mailerr"
)

// Parse parses a query string.7's grammar:
//
//	query   := filter (orderby)?
//	filter  := or
//	or      := and ("or" and)*
//	and     := not ("and" not)*
//	not     := "not"* atom
//	atom    := "(" filter ")" | leaf
//	leaf    := "date"|"before"|"after" DATE
//	         | ("from"|"to"|"subject"|"body"|"keyword") PATTERN
//	orderby := "order" "by" field ("asc"|"desc")?
func Parse(input string) (*Query, error) {
	p := &parser{toks: lex(input)}
	filter, err := p.parseOr()
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindParse, "search query", err)
	}

	q := &Query{Filter: filter}
	if p.peek().kind == tokOrder {
		ob, err := p.parseOrderBy()
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindParse, "search query orderby", err)
		}
		q.OrderBy = ob
	}

	if p.peek().kind != tokEOF {
		return nil, mailerr.New(mailerr.KindParse, "unexpected trailing input: "+p.peek().text)
	}
	return q, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.peek().kind == tokOr {
		p.advance()
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return Or{Children: children}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.peek().kind == tokAnd {
		p.advance()
		next, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return And{Children: children}, nil
}

func (p *parser) parseNot() (Node, error) {
	negations := 0
	for p.peek().kind == tokNot {
		p.advance()
		negations++
	}
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if negations%2 == 1 {
		return Not{Child: atom}, nil
	}
	return atom, nil
}

func (p *parser) parseAtom() (Node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, mailerr.New(mailerr.KindParse, "expected closing parenthesis")
		}
		p.advance()
		return inner, nil
	case tokField:
		return p.parseLeaf()
	default:
		return nil, mailerr.New(mailerr.KindParse, "expected '(' or a field, got: "+tok.text)
	}
}

func (p *parser) parseLeaf() (Node, error) {
	field := p.advance()
	switch strings.ToLower(field.text) {
	case "date", "before", "after":
		valTok := p.advance()
		if valTok.kind != tokWord && valTok.kind != tokField {
			return nil, mailerr.New(mailerr.KindParse, "expected a date after "+field.text)
		}
		d, err := parseDate(valTok.text)
		if err != nil {
			return nil, err
		}
		var kind LeafKind
		switch strings.ToLower(field.text) {
		case "before":
			kind = LeafBefore
		case "after":
			kind = LeafAfter
		default:
			kind = LeafDate
		}
		return Leaf{Kind: kind, Date: d}, nil
	case "from", "to", "subject", "body", "keyword":
		valTok := p.advance()
		if valTok.kind != tokWord && valTok.kind != tokField {
			return nil, mailerr.New(mailerr.KindParse, "expected a pattern after "+field.text)
		}
		return Leaf{Kind: leafKindOf(field.text), Pattern: valTok.text}, nil
	default:
		return nil, mailerr.New(mailerr.KindParse, "unknown field: "+field.text)
	}
}

func leafKindOf(field string) LeafKind {
	switch strings.ToLower(field) {
	case "to":
		return LeafTo
	case "subject":
		return LeafSubject
	case "body":
		return LeafBody
	case "keyword":
		return LeafKeyword
	default:
		return LeafFrom
	}
}

func (p *parser) parseOrderBy() (*OrderBy, error) {
	p.advance() // "order"
	if p.peek().kind != tokBy {
		return nil, mailerr.New(mailerr.KindParse, "expected 'by' after 'order'")
	}
	p.advance() // "by"

	fieldTok := p.advance()
	var field OrderField
	switch strings.ToLower(fieldTok.text) {
	case "date":
		field = OrderByDate
	case "subject":
		field = OrderBySubject
	case "from":
		field = OrderByFrom
	case "to":
		field = OrderByTo
	default:
		return nil, mailerr.New(mailerr.KindParse, "unknown orderby field: "+fieldTok.text)
	}

	ob := &OrderBy{Field: field}
	switch p.peek().kind {
	case tokDesc:
		p.advance()
		ob.Desc = true
	case tokAsc:
		p.advance()
	}
	return ob, nil
}

// parseDate parses DATE := YYYY-MM-DD | YYYY/MM/DD | DD-MM-YYYY | DD/MM/YYYY
// into local midnight of that day.
func parseDate(s string) (time.Time, error) {
	layouts := []string{"2006-01-02", "2006/01/02", "02-01-2006", "02/01/2006"}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, mailerr.New(mailerr.KindParse, "invalid date: "+s)
}

// quoteIfNeeded is used by the printer to decide whether a pattern needs
// quoting on round-trip.
func quoteIfNeeded(pattern string) string {
	if pattern == "" {
		return `""`
	}
	needsQuote := strings.ContainsAny(pattern, " ()\"")
	if !needsQuote {
		return pattern
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(pattern)
	return `"` + escaped + `"`
}

// formatDate renders a date leaf's value back into the canonical
// YYYY-MM-DD form used by the printer.
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
