package template

import (
	"context"
	"strings"
	"testing"

	"github.com/fenilsonani/mailcore/internal/model"
)

func TestPrefixlessSubjectRe(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello, world!", "Hello, world!"},
		{"re:Hello, world!", "Hello, world!"},
		{"Re   :Hello, world!", "Hello, world!"},
		{"rE:   Hello, world!", "Hello, world!"},
		{"  RE:  re  :Hello, world!", "Hello, world!"},
	}
	for _, c := range cases {
		if got := prefixlessSubject(c.in, "re"); got != c.want {
			t.Errorf("prefixlessSubject(%q, re) = %q, want %q", c.in, got, c.want)
		}
	}
}

func testOriginalMessage(t *testing.T, from, to, subject, body string) model.Message {
	t.Helper()
	raw := "Message-Id: <orig@localhost>\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"\r\n" + body
	return model.Message{Raw: []byte(raw)}
}

func TestReplyBuilderSubjectPrefix(t *testing.T) {
	msg := testOriginalMessage(t, "Bob <bob@localhost>", "Alice <alice@localhost>", "Hello", "Hi there.\n")
	res, err := NewReply(msg, testAccount()).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.MML, "Subject: Re: Hello\n") {
		t.Fatalf("missing reply subject: %q", res.MML)
	}
	if !strings.Contains(res.MML, "To: Bob <bob@localhost>\n") {
		t.Fatalf("should reply to original sender: %q", res.MML)
	}
	if !strings.Contains(res.MML, "In-Reply-To: <orig@localhost>\n") {
		t.Fatalf("missing In-Reply-To: %q", res.MML)
	}
}

func TestReplyBuilderQuotesThread(t *testing.T) {
	msg := testOriginalMessage(t, "Bob <bob@localhost>", "Alice <alice@localhost>", "Hello", "Hi there.\n")
	res, err := NewReply(msg, testAccount()).WithBody("Thanks!").Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.MML, "> Hi there.") {
		t.Fatalf("expected quoted thread body: %q", res.MML)
	}
	if !strings.Contains(res.MML, "Thanks!") {
		t.Fatalf("expected reply body: %q", res.MML)
	}
}

func TestReplyBuilderNoReplyFiltered(t *testing.T) {
	msg := testOriginalMessage(t, "no-reply@localhost", "Alice <alice@localhost>", "Hello", "Hi there.\n")
	res, err := NewReply(msg, testAccount()).WithReplyAll(true).Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.MML, "Cc: no-reply@localhost") {
		t.Fatalf("no-reply address should not appear in Cc: %q", res.MML)
	}
}
