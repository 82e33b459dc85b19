// Package model defines the shared data types and the structured error
// taxonomy for the credential issuance pipeline.
//
// Types here are plain data: they carry no behavior beyond accessors and
// JSON serialization, so every component (normalizer, renderer, uploader,
// ledger client, project store, orchestrator) can exchange them without
// import cycles.
package model
