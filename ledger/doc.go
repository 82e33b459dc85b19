// Package ledger is the client and reference server for the append-only
// certificate ledger.
//
// The wire surface is a gRPC service built on protobuf Struct messages,
// so no codegen toolchain is required. Commits carry a signature made by
// a keys.Signer; the ledger assigns certificate ids from a monotonic
// counter, and batch commits are all-or-nothing at the transaction level.
package ledger
