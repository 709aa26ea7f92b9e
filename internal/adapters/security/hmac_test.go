package security

import "testing"

func TestHMACSignerRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := NewHMACSigner("test-signing-key")
	if err != nil {
		t.Fatalf("new signer failed: %v", err)
	}
	payload := []byte("DEPOSIT_RECEIVED|100000.00|{}|vault-1|1234567890")
	sig := signer.Sign(payload)
	if sig == "" {
		t.Fatalf("signature should not be empty")
	}
	if !signer.Verify(payload, sig) {
		t.Fatalf("signature should verify against the original payload")
	}
	if signer.Verify([]byte("DEPOSIT_RECEIVED|999999.00|{}|vault-1|1234567890"), sig) {
		t.Fatalf("signature must not verify a tampered payload")
	}
	if signer.Verify(payload, "not-hex") {
		t.Fatalf("malformed signature must not verify")
	}
}

func TestHMACSignerRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewHMACSigner(""); err == nil {
		t.Fatalf("empty signing key must be rejected")
	}
}

func TestHMACSignerKeysAreIndependent(t *testing.T) {
	t.Parallel()

	a, _ := NewHMACSigner("key-a")
	b, _ := NewHMACSigner("key-b")
	payload := []byte("CLAIM_PROCESSED||{}|vault-1|42")
	if b.Verify(payload, a.Sign(payload)) {
		t.Fatalf("signature from one key must not verify under another")
	}
}
