package search

import (
	"testing"
	"time"

	"github.com/fenilsonani/mailcore/internal/model"
)

func TestParseSimpleLeaf(t *testing.T) {
	q, err := Parse(`from alice`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	leaf, ok := q.Filter.(Leaf)
	if !ok {
		t.Fatalf("Filter = %T, want Leaf", q.Filter)
	}
	if leaf.Kind != LeafFrom || leaf.Pattern != "alice" {
		t.Errorf("leaf = %+v, want From/alice", leaf)
	}
}

func TestParseQuotedPattern(t *testing.T) {
	q, err := Parse(`subject "weekly report"`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	leaf := q.Filter.(Leaf)
	if leaf.Pattern != "weekly report" {
		t.Errorf("Pattern = %q, want %q", leaf.Pattern, "weekly report")
	}
}

func TestParseBooleanPrecedence(t *testing.T) {
	// not > and > or: "from a and to b or not subject c" parses as
	// (from a and to b) or (not subject c)
	q, err := Parse(`from a and to b or not subject c`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	or, ok := q.Filter.(Or)
	if !ok {
		t.Fatalf("Filter = %T, want Or", q.Filter)
	}
	if len(or.Children) != 2 {
		t.Fatalf("Or children = %d, want 2", len(or.Children))
	}
	and, ok := or.Children[0].(And)
	if !ok {
		t.Fatalf("Or.Children[0] = %T, want And", or.Children[0])
	}
	if len(and.Children) != 2 {
		t.Errorf("And children = %d, want 2", len(and.Children))
	}
	if _, ok := or.Children[1].(Not); !ok {
		t.Errorf("Or.Children[1] = %T, want Not", or.Children[1])
	}
}

func TestParseParentheses(t *testing.T) {
	q, err := Parse(`(from a or from b) and subject c`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	and, ok := q.Filter.(And)
	if !ok {
		t.Fatalf("Filter = %T, want And", q.Filter)
	}
	if _, ok := and.Children[0].(Or); !ok {
		t.Errorf("And.Children[0] = %T, want Or", and.Children[0])
	}
}

func TestParseDoubleNot(t *testing.T) {
	q, err := Parse(`not not from a`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := q.Filter.(Leaf); !ok {
		t.Errorf("double not should cancel, Filter = %T", q.Filter)
	}
}

func TestParseDateFormats(t *testing.T) {
	tests := []string{"2026-07-31", "2026/07/31", "31-07-2026", "31/07/2026"}
	for _, s := range tests {
		q, err := Parse("date " + s)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", s, err)
		}
		leaf := q.Filter.(Leaf)
		if leaf.Date.Year() != 2026 || leaf.Date.Month() != time.July || leaf.Date.Day() != 31 {
			t.Errorf("Parse(%q) date = %v, want 2026-07-31", s, leaf.Date)
		}
	}
}

func TestParseOrderBy(t *testing.T) {
	q, err := Parse(`from a order by date desc`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if q.OrderBy == nil {
		t.Fatal("OrderBy = nil, want set")
	}
	if q.OrderBy.Field != OrderByDate || !q.OrderBy.Desc {
		t.Errorf("OrderBy = %+v, want Date/desc", q.OrderBy)
	}
}

func TestParseInvalidField(t *testing.T) {
	if _, err := Parse(`bogus foo`); err == nil {
		t.Error("Parse() expected error for unknown field")
	}
}

func TestParseUnbalancedParens(t *testing.T) {
	if _, err := Parse(`(from a`); err == nil {
		t.Error("Parse() expected error for unbalanced parens")
	}
}

func TestDateWindowSemantics(t *testing.T) {
	d := mustDate(t, "2026-07-31")

	before := Leaf{Kind: LeafBefore, Date: d}
	if before.MatchesDate(d) {
		t.Error("before D should not match D 00:00")
	}
	if !before.MatchesDate(d.Add(-time.Second)) {
		t.Error("before D should match just before D")
	}

	after := Leaf{Kind: LeafAfter, Date: d}
	if !after.MatchesDate(d.AddDate(0, 0, 1)) {
		t.Error("after D should match D+1 00:00")
	}
	if after.MatchesDate(d) {
		t.Error("after D should not match D 00:00")
	}

	within := Leaf{Kind: LeafDate, Date: d}
	if !within.MatchesDate(d.Add(12 * time.Hour)) {
		t.Error("date D should match midday of D")
	}
	if within.MatchesDate(d.AddDate(0, 0, 1)) {
		t.Error("date D should not match D+1")
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := parseDate(s)
	if err != nil {
		t.Fatalf("parseDate(%q) error = %v", s, err)
	}
	return d
}

func TestPrintRoundTrip(t *testing.T) {
	inputs := []string{
		`from alice`,
		`from a and to b`,
		`from a or to b`,
		`not from a`,
		`(from a or to b) and subject c`,
		`date 2026-07-31`,
		`subject "weekly report"`,
	}
	for _, in := range inputs {
		q1, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", in, err)
		}
		printed := Print(q1)
		q2, err := Parse(printed)
		if err != nil {
			t.Fatalf("re-Parse(%q) error = %v", printed, err)
		}
		if Print(q2) != printed {
			t.Errorf("round trip unstable: %q -> %q -> %q", in, printed, Print(q2))
		}
	}
}

func TestToIMAPSimple(t *testing.T) {
	q, _ := Parse(`from alice and subject weekly`)
	crit := ToIMAP(q)
	if len(crit.Header) != 2 {
		t.Fatalf("Header fields = %d, want 2", len(crit.Header))
	}
}

func TestToIMAPOr(t *testing.T) {
	q, _ := Parse(`from a or from b`)
	crit := ToIMAP(q)
	if len(crit.Or) != 1 {
		t.Fatalf("Or pairs = %d, want 1", len(crit.Or))
	}
}

func TestToIMAPDateRange(t *testing.T) {
	q, _ := Parse(`date 2026-07-31`)
	crit := ToIMAP(q)
	if crit.Since.IsZero() || crit.Before.IsZero() {
		t.Error("date leaf should set both Since and Before")
	}
	if !crit.Before.After(crit.Since) {
		t.Error("Before should be after Since")
	}
}

func TestToNotmuch(t *testing.T) {
	q, _ := Parse(`from alice and subject "weekly report"`)
	got := ToNotmuch(q)
	want := `from:alice and subject:"weekly report"`
	if got != want {
		t.Errorf("ToNotmuch() = %q, want %q", got, want)
	}
}

func TestToNotmuchOrPrecedence(t *testing.T) {
	q, _ := Parse(`from a and to b or subject c`)
	got := ToNotmuch(q)
	want := `from:a and to:b or subject:c`
	if got != want {
		t.Errorf("ToNotmuch() = %q, want %q", got, want)
	}
}

func TestToMaildirPredicate(t *testing.T) {
	q, _ := Parse(`from alice and subject weekly`)
	pred := ToMaildir(q)

	match := model.Envelope{
		Subject: "Weekly status",
		From:    model.Mailbox{Addr: "alice@example.com"},
	}
	if !pred(match) {
		t.Error("predicate should match envelope")
	}

	noMatch := model.Envelope{
		Subject: "Weekly status",
		From:    model.Mailbox{Addr: "bob@example.com"},
	}
	if pred(noMatch) {
		t.Error("predicate should not match different sender")
	}
}

func TestToMaildirOr(t *testing.T) {
	q, _ := Parse(`from a or from b`)
	pred := ToMaildir(q)
	if !pred(model.Envelope{From: model.Mailbox{Addr: "a@x.com"}}) {
		t.Error("should match a")
	}
	if !pred(model.Envelope{From: model.Mailbox{Addr: "b@x.com"}}) {
		t.Error("should match b")
	}
	if pred(model.Envelope{From: model.Mailbox{Addr: "c@x.com"}}) {
		t.Error("should not match c")
	}
}

func TestToMaildirNot(t *testing.T) {
	q, _ := Parse(`not from a`)
	pred := ToMaildir(q)
	if pred(model.Envelope{From: model.Mailbox{Addr: "a@x.com"}}) {
		t.Error("not from a should exclude a")
	}
	if !pred(model.Envelope{From: model.Mailbox{Addr: "b@x.com"}}) {
		t.Error("not from a should include b")
	}
}

func TestToMaildirDate(t *testing.T) {
	q, _ := Parse(`after 2026-07-01`)
	pred := ToMaildir(q)
	d := mustDate(t, "2026-07-01")
	if pred(model.Envelope{Date: d}) {
		t.Error("after D should exclude D itself")
	}
	if !pred(model.Envelope{Date: d.AddDate(0, 0, 2)}) {
		t.Error("after D should include D+2")
	}
}
