// Package keys provides the local-first key management used to sign
// ledger commits.
//
// Pure, deterministic primitives (issuer-key formatting, role-seed
// derivation, signature helpers) are stable. The filesystem-backed
// KeyStore is a KMS-lite convenience: seeds live as hex files under a
// per-identifier directory, readable only by the owner.
package keys
