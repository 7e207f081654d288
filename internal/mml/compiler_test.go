package mml

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/emersion/go-message"
	"github.com/fenilsonani/mailcore/internal/mailerr"
)

// compileAndParse compiles src into a full MIME message (under a minimal
// envelope) and parses it back, so assertions can check the structural
// properties compile_part in the reference compiler guarantees without
// depending on go-message's exact header folding/line-ending choices.
func compileAndParse(t *testing.T, src string, opts CompileOptions) *message.Entity {
	t.Helper()
	var envelope message.Header
	envelope.Set("Message-Id", "<id@localhost>")

	var buf bytes.Buffer
	if err := Compile(context.Background(), &buf, envelope, src, opts); err != nil {
		t.Fatalf("Compile(%q) error: %v", src, err)
	}

	entity, err := message.Read(&buf)
	if err != nil {
		t.Fatalf("parse compiled message: %v", err)
	}
	return entity
}

func TestCompilePlainText(t *testing.T) {
	entity := compileAndParse(t, "Hello, world!", CompileOptions{})

	mediaType, params, err := entity.Header.ContentType()
	if err != nil {
		t.Fatalf("ContentType: %v", err)
	}
	if mediaType != "text/plain" {
		t.Fatalf("media type = %q, want text/plain", mediaType)
	}
	if params["charset"] != "utf-8" {
		t.Fatalf("charset = %q, want utf-8", params["charset"])
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "Hello, world!" {
		t.Fatalf("body = %q", body)
	}
}

func TestCompileHTMLPart(t *testing.T) {
	entity := compileAndParse(t, `<#part type=text/html><h1>Hello, world!</h1><#/part>`, CompileOptions{})

	mediaType, params, err := entity.Header.ContentType()
	if err != nil {
		t.Fatalf("ContentType: %v", err)
	}
	if mediaType != "text/html" {
		t.Fatalf("media type = %q, want text/html", mediaType)
	}
	if params["charset"] != "utf-8" {
		t.Fatalf("charset = %q, want utf-8", params["charset"])
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "<h1>Hello, world!</h1>" {
		t.Fatalf("body = %q", body)
	}
}

func TestCompileAttachment(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "attachment*.txt")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString("Hello, world!"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	src := "<#part filename=" + f.Name() + " type=text/plain name=custom recipient-filename=/tmp/custom encoding=base64>discarded body<#/part>"
	entity := compileAndParse(t, src, CompileOptions{})

	mediaType, params, err := entity.Header.ContentType()
	if err != nil {
		t.Fatalf("ContentType: %v", err)
	}
	if mediaType != "text/plain" {
		t.Fatalf("media type = %q, want text/plain", mediaType)
	}
	if _, ok := params["charset"]; ok {
		t.Fatalf("attachment content type must not carry a charset, got params %v", params)
	}
	if params["name"] != "custom" {
		t.Fatalf("name param = %q, want custom", params["name"])
	}

	if got := entity.Header.Get("Content-Transfer-Encoding"); got != "base64" {
		t.Fatalf("Content-Transfer-Encoding = %q, want base64", got)
	}

	_, dispParams, err := entity.Header.ContentDisposition()
	if err != nil {
		t.Fatalf("ContentDisposition: %v", err)
	}
	if dispParams["filename"] != "/tmp/custom" {
		t.Fatalf("disposition filename = %q, want /tmp/custom", dispParams["filename"])
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "Hello, world!" {
		t.Fatalf("body = %q, want file contents, not the discarded inline body", body)
	}
}

func TestCompileBodylessPartWithoutFilenameFails(t *testing.T) {
	var envelope message.Header
	envelope.Set("Message-Id", "<id@localhost>")

	var buf bytes.Buffer
	err := Compile(context.Background(), &buf, envelope,
		"<#part type=image/jpeg disposition=inline><#/part>", CompileOptions{})
	if err == nil {
		t.Fatal("expected Compile to reject a bodyless part with no filename")
	}
	if !mailerr.Is(err, mailerr.KindParse) {
		t.Errorf("error kind = %v, want KindParse", err)
	}
}

func TestCompileMultipleParts(t *testing.T) {
	entity := compileAndParse(t, "<#part>First.<#/part><#part>Second.<#/part>", CompileOptions{})

	mediaType, _, err := entity.Header.ContentType()
	if err != nil {
		t.Fatalf("ContentType: %v", err)
	}
	if mediaType != "multipart/mixed" {
		t.Fatalf("media type = %q, want multipart/mixed", mediaType)
	}

	mr := entity.MultipartReader()
	if mr == nil {
		t.Fatal("expected a multipart reader")
	}

	var bodies []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			t.Fatalf("read part body: %v", err)
		}
		bodies = append(bodies, string(data))
	}

	if len(bodies) != 2 || bodies[0] != "First." || bodies[1] != "Second." {
		t.Fatalf("bodies = %v", bodies)
	}
}
