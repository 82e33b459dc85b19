package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"
)

func TestDeriveRoleSeed(t *testing.T) {
	root := testSeed()

	issuer1, err := DeriveRoleSeed(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	issuer2, err := DeriveRoleSeed(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if string(issuer1) != string(issuer2) {
		t.Error("same root and role derived different seeds")
	}
	if len(issuer1) != ed25519.SeedSize {
		t.Errorf("derived seed is %d bytes, want %d", len(issuer1), ed25519.SeedSize)
	}

	registrar, err := DeriveRoleSeed(root, "registrar")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if string(issuer1) == string(registrar) {
		t.Error("distinct roles derived the same seed")
	}
	if string(issuer1) == string(root) {
		t.Error("derived seed equals the root seed")
	}

	if _, err := DeriveRoleSeed(root[:8], "issuer"); err == nil {
		t.Error("short root seed accepted")
	}
	if _, err := DeriveRoleSeed(root, "bad role!"); err == nil {
		t.Error("role with invalid characters accepted")
	}
}

func TestGenerateIssuerKeyFromSeed(t *testing.T) {
	issuerKey := GenerateIssuerKeyFromSeed(testSeed())

	enc, ok := strings.CutPrefix(issuerKey, "ed25519:")
	if !ok {
		t.Fatalf("issuer key %q lacks the ed25519 prefix", issuerKey)
	}
	pub, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		t.Fatalf("issuer key payload is not base64: %v", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		t.Fatalf("decoded %d pubkey bytes, want %d", len(pub), ed25519.PublicKeySize)
	}

	// Same seed, same identity string.
	if again := GenerateIssuerKeyFromSeed(testSeed()); again != issuerKey {
		t.Errorf("issuer key not stable: %q vs %q", again, issuerKey)
	}
}
