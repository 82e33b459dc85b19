// Package project is the local projection of issuance state: projects
// with their rosters, templates, and issued certificates, plus the
// current wallet session.
//
// Everything lives in two JSON files under one directory. The store is
// the local source of truth for display; the ledger remains the source
// of truth for verification.
package project
