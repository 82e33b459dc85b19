package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"certledger.dev/certledger/model"
)

// VerifyIssuerSignature checks a base64 signature against an issuer-key
// string ("ed25519:<b64>" or "dilithium3:<b64>"). The signature is over
// the hashAlg digest of message.
func VerifyIssuerSignature(issuerKey, hashAlg string, message []byte, sigB64 string) error {
	alg, enc, ok := strings.Cut(issuerKey, ":")
	if !ok {
		return model.NewError(model.KindValidation, "CERT-KEY-005", "invalid issuer key encoding")
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return model.WrapError(model.KindValidation, "CERT-KEY-005", "invalid issuer key base64", err)
	}
	sig, err := decodeBase64(sigB64)
	if err != nil {
		return model.WrapError(model.KindValidation, "CERT-KEY-006", "invalid signature base64", err)
	}
	digest, err := digestFor(hashAlg, message)
	if err != nil {
		return model.WrapError(model.KindValidation, "CERT-KEY-002", "unsupported hash algorithm", err)
	}

	switch alg {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return model.NewError(model.KindValidation, "CERT-KEY-005", "invalid ed25519 public key length")
		}
		if len(sig) != ed25519.SignatureSize {
			return model.NewError(model.KindValidation, "CERT-KEY-006", "invalid ed25519 signature length")
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return model.NewError(model.KindValidation, "CERT-KEY-007", "signature invalid")
		}
		return nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return model.WrapError(model.KindValidation, "CERT-KEY-005", "invalid dilithium3 public key", err)
		}
		if len(sig) != mode3.SignatureSize {
			return model.NewError(model.KindValidation, "CERT-KEY-006", "invalid dilithium3 signature length")
		}
		if !mode3.Verify(&pk, digest, sig) {
			return model.NewError(model.KindValidation, "CERT-KEY-007", "signature invalid")
		}
		return nil
	default:
		return model.NewError(model.KindValidation, "CERT-KEY-005", "unsupported issuer key algorithm")
	}
}

func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
