package search

import "strings"

// Print renders a Query back into the grammar's surface syntax. Parsing
// Print(q) reproduces an AST equivalent to q (the round-trip property),
// though parenthesization and whitespace are not preserved verbatim.
func Print(q *Query) string {
	var sb strings.Builder
	printNode(&sb, q.Filter, false)
	if q.OrderBy != nil {
		sb.WriteString(" order by ")
		sb.WriteString(q.OrderBy.Field.String())
		if q.OrderBy.Desc {
			sb.WriteString(" desc")
		}
	}
	return sb.String()
}

func printNode(sb *strings.Builder, n Node, parenthesize bool) {
	switch v := n.(type) {
	case Or:
		if parenthesize {
			sb.WriteString("(")
		}
		for i, c := range v.Children {
			if i > 0 {
				sb.WriteString(" or ")
			}
			printNode(sb, c, needsParensUnder(c, precOr))
		}
		if parenthesize {
			sb.WriteString(")")
		}
	case And:
		if parenthesize {
			sb.WriteString("(")
		}
		for i, c := range v.Children {
			if i > 0 {
				sb.WriteString(" and ")
			}
			printNode(sb, c, needsParensUnder(c, precAnd))
		}
		if parenthesize {
			sb.WriteString(")")
		}
	case Not:
		sb.WriteString("not ")
		printNode(sb, v.Child, needsParensUnder(v.Child, precNot))
	case Leaf:
		printLeaf(sb, v)
	}
}

type precedence int

const (
	precOr precedence = iota
	precAnd
	precNot
)

// nodePrecedence returns the binding strength of n's top operator; leaves
// bind tightest of all.
func nodePrecedence(n Node) precedence {
	switch n.(type) {
	case Or:
		return precOr
	case And:
		return precAnd
	case Not:
		return precNot
	default:
		return precNot + 1
	}
}

func needsParensUnder(child Node, parentPrec precedence) bool {
	return nodePrecedence(child) < parentPrec
}

func printLeaf(sb *strings.Builder, l Leaf) {
	switch l.Kind {
	case LeafDate:
		sb.WriteString("date ")
		sb.WriteString(formatDate(l.Date))
	case LeafBefore:
		sb.WriteString("before ")
		sb.WriteString(formatDate(l.Date))
	case LeafAfter:
		sb.WriteString("after ")
		sb.WriteString(formatDate(l.Date))
	default:
		sb.WriteString(l.Kind.String())
		sb.WriteString(" ")
		sb.WriteString(quoteIfNeeded(l.Pattern))
	}
}
