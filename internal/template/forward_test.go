package template

import (
	"context"
	"strings"
	"testing"
)

func TestPrefixlessSubjectFwd(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello, world!", "Hello, world!"},
		{"fwd:Hello, world!", "Hello, world!"},
		{"Fwd   :Hello, world!", "Hello, world!"},
		{"fWd:   Hello, world!", "Hello, world!"},
		{"  FWD:  fwd  :Hello, world!", "Hello, world!"},
	}
	for _, c := range cases {
		if got := prefixlessSubject(c.in, "fwd"); got != c.want {
			t.Errorf("prefixlessSubject(%q, fwd) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestForwardBuilderSubjectAndRecipients(t *testing.T) {
	msg := testOriginalMessage(t, "Bob <bob@localhost>", "Alice <alice@localhost>", "Hello", "Hi there.\n")
	res, err := NewForward(msg, testAccount()).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.MML, "Subject: Fwd: Hello\n") {
		t.Fatalf("missing forward subject: %q", res.MML)
	}
	if !strings.Contains(res.MML, "To: \n") {
		t.Fatalf("forward To should start empty: %q", res.MML)
	}
}

func TestForwardBuilderInlineQuote(t *testing.T) {
	msg := testOriginalMessage(t, "Bob <bob@localhost>", "Alice <alice@localhost>", "Hello", "Hi there.\n")
	res, err := NewForward(msg, testAccount()).WithBody("FYI").Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.MML, "FYI") {
		t.Fatalf("missing forward body: %q", res.MML)
	}
	if !strings.Contains(res.MML, "Forwarded Message") || !strings.Contains(res.MML, "Hi there.") {
		t.Fatalf("missing quoted thread: %q", res.MML)
	}
}

func TestForwardBuilderAttachOriginal(t *testing.T) {
	msg := testOriginalMessage(t, "Bob <bob@localhost>", "Alice <alice@localhost>", "Hello", "Hi there.\n")
	res, err := NewForward(msg, testAccount()).WithAttachOriginal(true).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.MML, "type=message/rfc822") {
		t.Fatalf("expected attached original message: %q", res.MML)
	}
	if !strings.Contains(res.MML, "orig@localhost.eml") {
		t.Fatalf("expected message-id based filename: %q", res.MML)
	}
}

func TestForwardBuilderQuoteNone(t *testing.T) {
	msg := testOriginalMessage(t, "Bob <bob@localhost>", "Alice <alice@localhost>", "Hello", "Hi there.\n")
	res, err := NewForward(msg, testAccount()).WithQuotePlacement(QuoteNone).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.MML, "Hi there.") {
		t.Fatalf("quote should be omitted: %q", res.MML)
	}
}
