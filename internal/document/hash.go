package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainResource is the domain prefix for resource payload hashes.
// The version suffix enables future algorithm migration.
const DomainResource = "tenantsync/resource/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the content hash of a payload. The hash is taken over the
// canonical serialization, so field order in the source JSON is irrelevant.
func Hash(obj Object) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("hash payload: %w", err)
	}
	return hashWithDomain(DomainResource, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(obj Object) string {
	h, err := Hash(obj)
	if err != nil {
		panic(err)
	}
	return h
}
