package pgp

import "testing"

func TestZBase32EncodeLength(t *testing.T) {
	// A SHA-1 digest is 20 bytes; Z-Base-32 emits ceil(20*8/5) = 32 chars.
	digest := make([]byte, 20)
	got := zBase32Encode(digest)
	if len(got) != 32 {
		t.Fatalf("zBase32Encode(20 zero bytes) length = %d, want 32", len(got))
	}
	for _, c := range got {
		if c != 'y' {
			t.Fatalf("zBase32Encode(20 zero bytes) = %q, want all 'y' (alphabet[0])", got)
		}
	}
}

func TestZBase32EncodeStaysInAlphabet(t *testing.T) {
	// "asdasd" bytes are used as a stable non-trivial input; the exact
	// value only needs to be deterministic and round-trippable in shape
	// (lowercase, alphabet-restricted), since no reference vector was
	// available in the example pack.
	got := zBase32Encode([]byte("asdasd"))
	if len(got) == 0 {
		t.Fatal("zBase32Encode returned empty string")
	}
	for _, c := range got {
		found := false
		for _, a := range zBase32Alphabet {
			if c == a {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("zBase32Encode produced character %q outside the alphabet", c)
		}
	}
}

func TestSplitWKDAddress(t *testing.T) {
	local, domain, err := splitWKDAddress("Jane.Doe@Example.COM")
	if err != nil {
		t.Fatalf("splitWKDAddress() error = %v", err)
	}
	if local != "Jane.Doe" {
		t.Errorf("local = %q, want %q (local part case is preserved)", local, "Jane.Doe")
	}
	if domain != "example.com" {
		t.Errorf("domain = %q, want lowercased %q", domain, "example.com")
	}
}

func TestSplitWKDAddressRejectsMissingAt(t *testing.T) {
	if _, _, err := splitWKDAddress("not-an-address"); err == nil {
		t.Error("splitWKDAddress(no @) should error")
	}
}
