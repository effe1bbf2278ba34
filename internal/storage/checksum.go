package storage

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChecksumPrefix is the prefix for SHA-256 checksums.
const ChecksumPrefix = "sha256:"

// Checksum represents a hex-encoded SHA-256 hash with the "sha256:" prefix.
// It fingerprints a configuration document so operators can tell which
// version a process loaded.
type Checksum string

// ComputeChecksum computes SHA-256 over a byte slice.
func ComputeChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return Checksum(ChecksumPrefix + hex.EncodeToString(sum[:]))
}

// Short returns the first 12 hex digits, enough to tell versions apart in logs.
func (c Checksum) Short() string {
	s := string(c)
	if len(s) < len(ChecksumPrefix)+12 {
		return s
	}
	return s[len(ChecksumPrefix) : len(ChecksumPrefix)+12]
}
