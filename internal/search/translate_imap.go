package search

import (
	"github.com/emersion/go-imap/v2"
)

// ToIMAP translates a Query's filter into an imap.SearchCriteria. IMAP
// SEARCH expresses every leaf natively, so this translator never falls
// back to in-memory evaluation.
func ToIMAP(q *Query) *imap.SearchCriteria {
	return toIMAPNode(q.Filter)
}

func toIMAPNode(n Node) *imap.SearchCriteria {
	switch v := n.(type) {
	case And:
		crit := &imap.SearchCriteria{}
		for _, c := range v.Children {
			mergeIMAPAnd(crit, toIMAPNode(c))
		}
		return crit
	case Or:
		if len(v.Children) == 0 {
			return &imap.SearchCriteria{}
		}
		acc := toIMAPNode(v.Children[0])
		for _, c := range v.Children[1:] {
			acc = &imap.SearchCriteria{
				Or: [][2]imap.SearchCriteria{{*acc, *toIMAPNode(c)}},
			}
		}
		return acc
	case Not:
		return &imap.SearchCriteria{Not: []imap.SearchCriteria{*toIMAPNode(v.Child)}}
	case Leaf:
		return imapLeaf(v)
	default:
		return &imap.SearchCriteria{}
	}
}

func imapLeaf(l Leaf) *imap.SearchCriteria {
	crit := &imap.SearchCriteria{}
	switch l.Kind {
	case LeafFrom:
		crit.Header = append(crit.Header, imap.SearchCriteriaHeaderField{Key: "From", Value: l.Pattern})
	case LeafTo:
		crit.Header = append(crit.Header, imap.SearchCriteriaHeaderField{Key: "To", Value: l.Pattern})
	case LeafSubject:
		crit.Header = append(crit.Header, imap.SearchCriteriaHeaderField{Key: "Subject", Value: l.Pattern})
	case LeafBody:
		crit.Body = append(crit.Body, l.Pattern)
	case LeafKeyword:
		crit.Text = append(crit.Text, l.Pattern)
	case LeafDate:
		start, end := l.dateWindow()
		crit.Since = start
		crit.Before = end
	case LeafBefore:
		crit.Before = l.Date
	case LeafAfter:
		start, _ := l.dateWindow()
		crit.Since = start
	}
	return crit
}

// mergeIMAPAnd folds src's fields into dst, since imap.SearchCriteria's own
// fields are implicitly ANDed together by the server.
func mergeIMAPAnd(dst, src *imap.SearchCriteria) {
	dst.Header = append(dst.Header, src.Header...)
	dst.Body = append(dst.Body, src.Body...)
	dst.Text = append(dst.Text, src.Text...)
	dst.Not = append(dst.Not, src.Not...)
	dst.Or = append(dst.Or, src.Or...)
	if !src.Since.IsZero() {
		dst.Since = src.Since
	}
	if !src.Before.IsZero() {
		dst.Before = src.Before
	}
}
