// Package contentref computes and checks content references for rendered
// artifacts.
//
// A content reference is a value derived from an artifact's bytes that
// uniquely and verifiably identifies it in the pinning store. The pinning
// service's hash is always kept verbatim; this package exists so callers
// can independently verify fetched bytes when the remote hash is a
// decodable CID.
package contentref

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"certledger.dev/certledger/model"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec and a
// sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length this should be unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// IsCID reports whether hash parses as a CID.
func IsCID(hash string) bool {
	id, err := cid.Decode(hash)
	return err == nil && id.Defined()
}

// Verify checks fetched bytes against the content reference they were
// fetched by.
//
// Only raw-codec CIDs can be recomputed from flat bytes; anything else
// (chunked dag-pb references, opaque service hashes) is accepted unchecked,
// because the remote hash is authoritative and kept verbatim.
func Verify(data []byte, hash string) error {
	want, err := cid.Decode(hash)
	if err != nil || !want.Defined() || want.Prefix().Codec != cid.Raw {
		return nil
	}

	sum, err := multihash.Sum(data, want.Prefix().MhType, -1)
	if err != nil {
		return model.WrapError(model.KindInternal, "CERT-REF-001", "cannot hash fetched bytes", err)
	}
	if got := cid.NewCidV1(cid.Raw, sum); got.String() != want.String() {
		return model.NewError(model.KindUpload, "CERT-REF-002",
			fmt.Sprintf("fetched bytes do not match content reference %s", hash))
	}
	return nil
}
