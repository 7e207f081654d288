package search

import (
	"fmt"
	"strings"
)

// ToNotmuch translates a Query's filter into a notmuch query string.
// Notmuch's own query language shares this grammar's shape (from:/to:/
// subject:/body:/date:, and/or/not, parentheses), so every leaf except
// "keyword" (mapped to a bare term, notmuch's whole-message search) and
// date ranges (mapped to notmuch's date:.. range syntax) translates
// natively.
func ToNotmuch(q *Query) string {
	return notmuchNode(q.Filter, precOr)
}

func notmuchNode(n Node, parentPrec precedence) string {
	switch v := n.(type) {
	case Or:
		parts := make([]string, len(v.Children))
		for i, c := range v.Children {
			parts[i] = notmuchNode(c, precOr)
		}
		joined := strings.Join(parts, " or ")
		if precOr < parentPrec {
			return "(" + joined + ")"
		}
		return joined
	case And:
		parts := make([]string, len(v.Children))
		for i, c := range v.Children {
			parts[i] = notmuchNode(c, precAnd)
		}
		joined := strings.Join(parts, " and ")
		if precAnd < parentPrec {
			return "(" + joined + ")"
		}
		return joined
	case Not:
		return "not " + notmuchNode(v.Child, precNot)
	case Leaf:
		return notmuchLeaf(v)
	default:
		return ""
	}
}

func notmuchLeaf(l Leaf) string {
	switch l.Kind {
	case LeafFrom:
		return fmt.Sprintf("from:%s", notmuchTerm(l.Pattern))
	case LeafTo:
		return fmt.Sprintf("to:%s", notmuchTerm(l.Pattern))
	case LeafSubject:
		return fmt.Sprintf("subject:%s", notmuchTerm(l.Pattern))
	case LeafBody:
		return fmt.Sprintf("body:%s", notmuchTerm(l.Pattern))
	case LeafKeyword:
		return notmuchTerm(l.Pattern)
	case LeafDate:
		start, end := l.dateWindow()
		return fmt.Sprintf("date:%d..%d", start.Unix(), end.Unix()-1)
	case LeafBefore:
		return fmt.Sprintf("date:..%d", l.Date.Unix()-1)
	case LeafAfter:
		start, _ := l.dateWindow()
		return fmt.Sprintf("date:%d..", start.Unix())
	default:
		return ""
	}
}

func notmuchTerm(pattern string) string {
	if strings.ContainsAny(pattern, " \t()") {
		return `"` + strings.ReplaceAll(pattern, `"`, `\"`) + `"`
	}
	return pattern
}
