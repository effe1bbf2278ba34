package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestComputeChecksum(t *testing.T) {
	// Known SHA-256 vector: sha256("hello") = 2cf24dba...
	data := []byte("hello")
	expected := sha256.Sum256(data)
	expectedStr := ChecksumPrefix + hex.EncodeToString(expected[:])

	got := ComputeChecksum(data)
	if string(got) != expectedStr {
		t.Errorf("ComputeChecksum(%q) = %s, want %s", data, got, expectedStr)
	}
}

func TestComputeChecksum_Empty(t *testing.T) {
	expected := sha256.Sum256(nil)
	expectedStr := ChecksumPrefix + hex.EncodeToString(expected[:])

	got := ComputeChecksum(nil)
	if string(got) != expectedStr {
		t.Errorf("ComputeChecksum(nil) = %s, want %s", got, expectedStr)
	}
}

func TestChecksum_Short(t *testing.T) {
	c := ComputeChecksum([]byte("hello"))
	if got := c.Short(); got != "2cf24dba5fb0" {
		t.Errorf("Short() = %q, want %q", got, "2cf24dba5fb0")
	}
	if got := Checksum("sha256:ab").Short(); got != "sha256:ab" {
		t.Errorf("Short() on malformed checksum = %q, want input unchanged", got)
	}
}

func TestComputeChecksum_DiffersOnChange(t *testing.T) {
	a := ComputeChecksum([]byte(`{"a":{"tokenizer":{"name":"simple"}}}`))
	b := ComputeChecksum([]byte(`{"a":{"tokenizer":{"name":"raw"}}}`))
	if a == b {
		t.Error("different documents should have different checksums")
	}
}
