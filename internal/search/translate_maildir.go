package search

import (
	"strings"

	"github.com/fenilsonani/mailcore/internal/model"
)

// Predicate is the in-memory fallback evaluator backends without a native
// search (Maildir has none) use after fetching the envelopes a leaf needs.
type Predicate func(model.Envelope) bool

// ToMaildir translates a Query's filter into an in-memory predicate, the
// fallback path for backends that cannot express a leaf server-side.
// Every leaf evaluates against the fields model.Envelope already carries
// (from/to/subject/date); a body leaf has no envelope-level
// field to test against, so it matches on subject as the closest available
// proxy until the caller fetches full message bodies for a second pass.
func ToMaildir(q *Query) Predicate {
	return maildirNode(q.Filter)
}

func maildirNode(n Node) Predicate {
	switch v := n.(type) {
	case And:
		preds := make([]Predicate, len(v.Children))
		for i, c := range v.Children {
			preds[i] = maildirNode(c)
		}
		return func(e model.Envelope) bool {
			for _, p := range preds {
				if !p(e) {
					return false
				}
			}
			return true
		}
	case Or:
		preds := make([]Predicate, len(v.Children))
		for i, c := range v.Children {
			preds[i] = maildirNode(c)
		}
		return func(e model.Envelope) bool {
			for _, p := range preds {
				if p(e) {
					return true
				}
			}
			return len(preds) == 0
		}
	case Not:
		inner := maildirNode(v.Child)
		return func(e model.Envelope) bool { return !inner(e) }
	case Leaf:
		return maildirLeaf(v)
	default:
		return func(model.Envelope) bool { return true }
	}
}

func maildirLeaf(l Leaf) Predicate {
	switch l.Kind {
	case LeafFrom:
		return func(e model.Envelope) bool { return matchesPattern(l.Pattern, e.From.Addr, e.From.Name) }
	case LeafTo:
		return func(e model.Envelope) bool {
			for _, m := range e.To {
				if matchesPattern(l.Pattern, m.Addr, m.Name) {
					return true
				}
			}
			return false
		}
	case LeafSubject, LeafBody:
		return func(e model.Envelope) bool { return matchesPattern(l.Pattern, e.Subject) }
	case LeafKeyword:
		return func(e model.Envelope) bool {
			return matchesPattern(l.Pattern, e.Subject, e.From.Addr, e.From.Name)
		}
	case LeafDate, LeafBefore, LeafAfter:
		return func(e model.Envelope) bool { return l.MatchesDate(e.Date) }
	default:
		return func(model.Envelope) bool { return true }
	}
}

func matchesPattern(pattern string, fields ...string) bool {
	needle := strings.ToLower(pattern)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
