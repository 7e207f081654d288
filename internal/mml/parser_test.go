package mml

import (
	"reflect"
	"strings"
	"testing"

	"github.com/fenilsonani/mailcore/internal/mailerr"
)

// single returns a KindSingle Part, defaulting Props to an empty map so
// expectations read the same whether or not a tag carried attributes.
func single(props map[string]string, body string) Part {
	if props == nil {
		props = map[string]string{}
	}
	return Part{Kind: KindSingle, Props: props, Body: body}
}

func multi(props map[string]string, children ...Part) Part {
	if props == nil {
		props = map[string]string{}
	}
	return Part{Kind: KindMulti, Props: props, Children: children}
}

func plain(body string) Part {
	return Part{Kind: KindPlainText, Body: body}
}

func assertParse(t *testing.T, src string, want []Part) {
	t.Helper()
	got, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", src, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse(%q) =\n  %#v\nwant\n  %#v", src, got, want)
	}
}

func TestParseSinglePartNoNewLine(t *testing.T) {
	assertParse(t,
		"<#part>This is a plain text part.",
		[]Part{single(nil, "This is a plain text part.")})

	assertParse(t,
		"<#part>This is a plain text part.<#/part>",
		[]Part{single(nil, "This is a plain text part.")})
}

func TestParseSinglePartNewLine(t *testing.T) {
	assertParse(t,
		"<#part>\nThis is a plain text part.",
		[]Part{single(nil, "This is a plain text part.")})

	assertParse(t,
		"<#part>\nThis is a plain text part.\n\n<#/part>\n",
		[]Part{single(nil, "This is a plain text part.\n\n")})
}

func TestParseSingleHTMLPart(t *testing.T) {
	assertParse(t,
		"<#part type=text/html>\n<h1>This is a HTML text part.</h1>\n<#/part>",
		[]Part{single(map[string]string{"type": "text/html"}, "<h1>This is a HTML text part.</h1>\n")})
}

func TestParseAttachment(t *testing.T) {
	assertParse(t,
		"<#part type=image/jpeg filename=~/rms.jpg disposition=inline><#/part>",
		[]Part{single(map[string]string{
			"type":        "image/jpeg",
			"filename":    "~/rms.jpg",
			"disposition": "inline",
		}, "")})
}

func TestParseAttachmentMissingFilenameIsParseError(t *testing.T) {
	_, err := Parse("<#part type=image/jpeg disposition=inline><#/part>")
	if err == nil {
		t.Fatal("expected a parse error for a bodyless part with no filename")
	}
	if !mailerr.Is(err, mailerr.KindParse) {
		t.Errorf("error kind = %v, want KindParse", err)
	}
	if !strings.Contains(err.Error(), "span") {
		t.Errorf("error %q does not carry a span", err.Error())
	}
}

func TestParseMultiPart(t *testing.T) {
	assertParse(t,
		"<#multipart>\nThis is a plain text part.\n<#/multipart>",
		[]Part{multi(nil, plain("This is a plain text part.\n"))})
}

func TestParseNestedMultiPart(t *testing.T) {
	leaf := plain("This is a plain text part.\n")

	assertParse(t,
		"<#multipart>\n<#multipart>\nThis is a plain text part.\n<#/multipart>\n<#/multipart>",
		[]Part{multi(nil, multi(nil, leaf))})

	assertParse(t,
		"<#multipart>\n<#multipart>\n<#multipart>\n<#multipart>\nThis is a plain text part.\n"+
			"<#/multipart>\n<#/multipart>\n<#/multipart>\n<#/multipart>",
		[]Part{multi(nil, multi(nil, multi(nil, multi(nil, leaf))))})
}

func TestParseAdjacentMultiPart(t *testing.T) {
	assertParse(t,
		"<#multipart>\n"+
			"<#multipart>\nThis is a plain text part.\n<#/multipart>\n"+
			"<#multipart>\nThis is a new plain text part.\n<#/multipart>\n"+
			"<#/multipart>",
		[]Part{multi(nil,
			multi(nil, plain("This is a plain text part.\n")),
			multi(nil, plain("This is a new plain text part.\n")),
		)})
}

func TestParseSimpleMML(t *testing.T) {
	assertParse(t,
		"<#multipart type=alternative>\n"+
			"This is a plain text part.\n"+
			"<#part type=text/enriched>\n"+
			"<center>This is a centered enriched part</center>\n"+
			"<#/multipart>\n",
		[]Part{multi(map[string]string{"type": "alternative"},
			plain("This is a plain text part.\n"),
			single(map[string]string{"type": "text/enriched"}, "<center>This is a centered enriched part</center>\n"),
		)})
}

func TestParseAdvancedMML(t *testing.T) {
	src := "<#multipart type=mixed>\n" +
		"<#part type=image/jpeg filename=~/rms.jpg disposition=inline>\n" +
		"<#/part>\n" +
		"<#multipart type=alternative>\n" +
		"This is a plain text part.\n" +
		"<#part type=text/enriched name=enriched.txt>\n" +
		"<center>This is a centered enriched part</center>\n" +
		"<#/multipart>\n" +
		"This is a new plain text part.\n" +
		"<#part disposition=attachment>\n" +
		"This plain text part is an attachment.\n" +
		"<#/multipart>\n"

	want := []Part{multi(map[string]string{"type": "mixed"},
		single(map[string]string{
			"type":        "image/jpeg",
			"filename":    "~/rms.jpg",
			"disposition": "inline",
		}, ""),
		multi(map[string]string{"type": "alternative"},
			plain("This is a plain text part.\n"),
			single(map[string]string{"type": "text/enriched", "name": "enriched.txt"},
				"<center>This is a centered enriched part</center>\n"),
		),
		plain("This is a new plain text part.\n"),
		single(map[string]string{"disposition": "attachment"}, "This plain text part is an attachment.\n"),
	)}

	assertParse(t, src, want)
}
