package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"certledger.dev/certledger/model"
)

// Signer holds one issuer identity for signing ledger commits.
//
// A Signer is bound to the session that created it. When the account or
// network underneath the session changes, call Invalidate: every
// subsequent Sign fails until a fresh Signer is built from the key
// store, which forces callers to re-establish the session rather than
// commit under a stale identity.
type Signer struct {
	mu      sync.Mutex
	invalid bool

	alg       string
	issuerKey string

	edPriv  ed25519.PrivateKey
	d3Priv  *mode3.PrivateKey
	hashAlg string
}

// NewEd25519Signer builds a Signer from an Ed25519 seed.
func NewEd25519Signer(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, model.NewError(model.KindValidation, "CERT-KEY-001", "ed25519 seed has wrong length")
	}
	return &Signer{
		alg:       "ed25519",
		issuerKey: GenerateIssuerKeyFromSeed(seed),
		edPriv:    ed25519.NewKeyFromSeed(seed),
	}, nil
}

// NewDilithium3Signer builds a post-quantum Signer with a fresh keypair.
// hashAlg must be one of sha256, sha512, sha3-256.
func NewDilithium3Signer(rand io.Reader, hashAlg string) (*Signer, error) {
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, model.WrapError(model.KindValidation, "CERT-KEY-002", "unsupported hash algorithm", err)
	}
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, model.WrapError(model.KindInternal, "CERT-KEY-003", "dilithium3 keygen failed", err)
	}
	return &Signer{
		alg:       "dilithium3",
		issuerKey: IssuerKeyFromDilithium3(pub),
		d3Priv:    priv,
		hashAlg:   hashAlg,
	}, nil
}

// IssuerKey is the public identity string this Signer commits under.
func (s *Signer) IssuerKey() string { return s.issuerKey }

// Algorithm reports the signature algorithm ("ed25519" or "dilithium3").
func (s *Signer) Algorithm() string { return s.alg }

// HashAlgorithm reports the digest used before signing. Ed25519 signers
// always use sha256.
func (s *Signer) HashAlgorithm() string {
	if s.alg == "ed25519" {
		return "sha256"
	}
	return s.hashAlg
}

// Sign returns a base64 signature over the message's digest. The ledger
// verifies it against IssuerKey with VerifyIssuerSignature.
func (s *Signer) Sign(message []byte) (string, error) {
	s.mu.Lock()
	invalid := s.invalid
	s.mu.Unlock()
	if invalid {
		return "", model.NewError(model.KindLedger, "CERT-LED-003",
			"signer invalidated by account or network change; re-establish the session before committing")
	}
	switch s.alg {
	case "ed25519":
		digest := sha256.Sum256(message)
		return base64.StdEncoding.EncodeToString(ed25519.Sign(s.edPriv, digest[:])), nil
	case "dilithium3":
		digest, err := digestFor(s.hashAlg, message)
		if err != nil {
			return "", model.WrapError(model.KindInternal, "CERT-KEY-002", "unsupported hash algorithm", err)
		}
		sig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(s.d3Priv, digest, sig)
		return base64.StdEncoding.EncodeToString(sig), nil
	default:
		return "", model.NewError(model.KindInternal, "CERT-KEY-004", "signer has no algorithm")
	}
}

// Invalidate marks the Signer unusable. Safe to call more than once.
func (s *Signer) Invalidate() {
	s.mu.Lock()
	s.invalid = true
	s.mu.Unlock()
}

// Valid reports whether the Signer can still sign.
func (s *Signer) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.invalid
}

// digestFor hashes message with the named algorithm. Signing and
// verification share it so the two sides can never disagree on the
// digest construction.
func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		d := sha256.Sum256(message)
		return d[:], nil
	case "sha512":
		d := sha512.Sum512(message)
		return d[:], nil
	case "sha3-256":
		d := sha3.Sum256(message)
		return d[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}
