package smtp

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
)

const sampleMessage = "From: Alice <alice@example.com>\r\n" +
	"To: Bob <bob@example.com>\r\n" +
	"Cc: carol@example.com\r\n" +
	"Subject: hello\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"hi there\r\n"

func TestParseEnvelope(t *testing.T) {
	from, recipients, err := parseEnvelope([]byte(sampleMessage))
	if err != nil {
		t.Fatalf("parseEnvelope() error = %v", err)
	}
	if from != "alice@example.com" {
		t.Errorf("from = %q, want alice@example.com", from)
	}
	want := map[string]bool{"bob@example.com": true, "carol@example.com": true}
	if len(recipients) != len(want) {
		t.Fatalf("recipients = %v, want 2 entries", recipients)
	}
	for _, r := range recipients {
		if !want[r] {
			t.Errorf("unexpected recipient %q", r)
		}
	}
}

func TestParseEnvelopeMissingFrom(t *testing.T) {
	msg := "To: bob@example.com\r\nSubject: hi\r\n\r\nbody\r\n"
	if _, _, err := parseEnvelope([]byte(msg)); err == nil {
		t.Error("expected error for missing From header")
	}
}

func TestParseEnvelopeDedupsRecipients(t *testing.T) {
	msg := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Cc: bob@example.com\r\n" +
		"\r\nbody\r\n"
	_, recipients, err := parseEnvelope([]byte(msg))
	if err != nil {
		t.Fatalf("parseEnvelope() error = %v", err)
	}
	if len(recipients) != 1 {
		t.Errorf("recipients = %v, want exactly one deduped entry", recipients)
	}
}

func TestSignDKIM(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey() error = %v", err)
	}
	cfg := &DKIMConfig{Domain: "example.com", Selector: "mail", Signer: priv}

	signed, err := signDKIM([]byte(sampleMessage), cfg)
	if err != nil {
		t.Fatalf("signDKIM() error = %v", err)
	}
	if !strings.Contains(string(signed), "DKIM-Signature:") {
		t.Error("signed message missing DKIM-Signature header")
	}
	if !strings.Contains(string(signed), "d=example.com") {
		t.Error("signed message missing signing domain")
	}
}

func TestFeatureOnlySendMessage(t *testing.T) {
	b := NewBuilder(Config{Host: "smtp.example.com", Port: 587, StartTLS: true})
	if f := b.Feature("list_folders"); f != nil {
		t.Error("Feature(list_folders) should be nil for SMTP")
	}
	if f := b.Feature("send_message"); f == nil {
		t.Error("Feature(send_message) should be non-nil for SMTP")
	}
}
