// Package fingerprint provides deterministic content hashing for node
// outputs and submission payloads. Identical values always produce identical
// hashes, so hash comparison stands in for value comparison everywhere
// dirtiness is decided.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash fingerprints a serialized output value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))

	return hex.EncodeToString(sum[:])
}
