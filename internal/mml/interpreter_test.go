package mml

import (
	"context"
	"strings"
	"testing"
)

// testMessage builds a raw text/plain MIME message with a fixed header
// set and the given body, mirroring the fixture used across
// original_source/mml's interpreter tests.
func testMessage(body string) []byte {
	msg := "Message-ID: <id@localhost>\r\n" +
		"In-Reply-To: <reply-id@localhost>\r\n" +
		"Date: Thu, 1 Jan 1970 00:00:00 +0000\r\n" +
		"From: from@localhost\r\n" +
		"To: to@localhost\r\n" +
		"Subject: subject\r\n" +
		"MIME-Version: 1.0\r\n" +
		`Content-Type: text/plain; charset=utf-8` + "\r\n" +
		"Content-Transfer-Encoding: 7bit\r\n" +
		"\r\n" +
		body
	return []byte(msg)
}

func interpret(t *testing.T, raw []byte, opts InterpretOptions) string {
	t.Helper()
	out, err := Interpret(context.Background(), raw, opts)
	if err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	return out
}

func TestInterpretAllHeaders(t *testing.T) {
	got := interpret(t, testMessage("Hello, world!"), InterpretOptions{ShowHeaders: HeaderFilter{Kind: HeadersAll}})

	for _, line := range []string{
		"Message-ID: <id@localhost>",
		"In-Reply-To: <reply-id@localhost>",
		"From: from@localhost",
		"To: to@localhost",
		"Subject: subject",
	} {
		if !strings.Contains(got, line) {
			t.Fatalf("output missing %q, got:\n%s", line, got)
		}
	}
	if !strings.HasSuffix(got, "\n\nHello, world!") {
		t.Fatalf("expected blank line then body, got:\n%s", got)
	}
}

func TestInterpretOnlyHeaders(t *testing.T) {
	got := interpret(t, testMessage("Hello, world!"), InterpretOptions{
		ShowHeaders: HeaderFilter{Kind: HeadersInclude, Headers: []string{"From", "Subject"}},
	})

	want := "From: from@localhost\nSubject: subject\n\nHello, world!"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInterpretOnlyHeadersDuplicated(t *testing.T) {
	got := interpret(t, testMessage("Hello, world!"), InterpretOptions{
		ShowHeaders: HeaderFilter{Kind: HeadersInclude, Headers: []string{"From", "Subject", "From"}},
	})

	want := "From: from@localhost\nSubject: subject\n\nHello, world!"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInterpretNoHeaders(t *testing.T) {
	got := interpret(t, testMessage("Hello, world!"), InterpretOptions{
		ShowHeaders: HeaderFilter{Kind: HeadersInclude, Headers: nil},
	})

	if got != "Hello, world!" {
		t.Fatalf("got %q, want body with no header block", got)
	}
}

func TestInterpretMMLMarkupEscaped(t *testing.T) {
	got := interpret(t, testMessage("<#part>Should be escaped.<#/part>"), InterpretOptions{
		ShowHeaders: HeaderFilter{Kind: HeadersInclude, Headers: []string{"From", "Subject"}},
	})

	want := "From: from@localhost\nSubject: subject\n\n<#!part>Should be escaped.<#!/part>"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
