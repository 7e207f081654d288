// Package search implements the query grammar that filters
// envelope listings across every backend: a recursive-descent parser
// produces a boolean Query AST, which per-backend translators turn into a
// native search (IMAP SEARCH, Notmuch query string) or an in-memory
// predicate for backends with no server-side search.
package search

import "time"

// Query is a parsed search expression: a boolean filter plus an optional
// ordering clause.
type Query struct {
	Filter  Node
	OrderBy *OrderBy
}

// OrderBy names the field and direction used to order the result set once
// the filter has selected it.
type OrderBy struct {
	Field OrderField
	Desc  bool
}

// OrderField is one of the envelope fields the grammar allows ordering on.
type OrderField int

const (
	OrderByDate OrderField = iota
	OrderBySubject
	OrderByFrom
	OrderByTo
)

func (f OrderField) String() string {
	switch f {
	case OrderBySubject:
		return "subject"
	case OrderByFrom:
		return "from"
	case OrderByTo:
		return "to"
	default:
		return "date"
	}
}

// Node is one node of the boolean filter tree: an And, Or, Not, or a Leaf.
type Node interface {
	isNode()
}

// And matches when every child matches. An empty And matches everything.
type And struct{ Children []Node }

// Or matches when any child matches. An empty Or matches nothing.
type Or struct{ Children []Node }

// Not inverts its child.
type Not struct{ Child Node }

func (And) isNode() {}
func (Or) isNode()  {}
func (Not) isNode() {}

// LeafKind selects which envelope field (or date relation) a Leaf tests.
type LeafKind int

const (
	LeafFrom LeafKind = iota
	LeafTo
	LeafSubject
	LeafBody
	LeafKeyword
	LeafDate
	LeafBefore
	LeafAfter
)

func (k LeafKind) String() string {
	switch k {
	case LeafFrom:
		return "from"
	case LeafTo:
		return "to"
	case LeafSubject:
		return "subject"
	case LeafBody:
		return "body"
	case LeafKeyword:
		return "keyword"
	case LeafDate:
		return "date"
	case LeafBefore:
		return "before"
	case LeafAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Leaf is one atomic test: a pattern match (From/To/Subject/Body/Keyword)
// or a date relation (Date/Before/After).
type Leaf struct {
	Kind    LeafKind
	Pattern string    // for From/To/Subject/Body/Keyword
	Date    time.Time // for Date/Before/After, always local-midnight
}

func (Leaf) isNode() {}

// dateWindow returns the half-open [start, end) interval a date-kind leaf
// matches against an envelope's Date field.7:
//   - before D  -> date < D 00:00 local
//   - after D   -> date >= (D+1) 00:00 local
//   - date D    -> the 24h interval of D
func (l Leaf) dateWindow() (start, end time.Time) {
	midnight := l.Date
	switch l.Kind {
	case LeafBefore:
		return time.Time{}, midnight
	case LeafAfter:
		return midnight.AddDate(0, 0, 1), time.Time{}
	default: // LeafDate
		return midnight, midnight.AddDate(0, 0, 1)
	}
}

// MatchesDate evaluates an envelope's Date field against the leaf's date
// window. Only meaningful for date-kind leaves.
func (l Leaf) MatchesDate(t time.Time) bool {
	start, end := l.dateWindow()
	switch l.Kind {
	case LeafBefore:
		return t.Before(end)
	case LeafAfter:
		return !t.Before(start)
	default:
		return !t.Before(start) && t.Before(end)
	}
}
