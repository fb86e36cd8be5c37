// Package document models resource payloads as generic structured JSON
// documents with a canonical serialization.
//
// Remote resources arrive with per-type, loosely defined field shapes, so
// the cache and push engine operate on a generic Value tree rather than
// fixed record types. Canonical serialization (RFC 8785 key ordering, NFC
// strings, no HTML escaping) makes the SHA-256 content hash independent of
// field order in the source JSON, which is the basis of change detection.
package document
