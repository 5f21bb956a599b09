package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room for
// changing the algorithm without colliding with stored hashes.
const (
	DomainProgram = "islet/program/v1"
	DomainState   = "islet/state/v1"
	DomainMarkup  = "islet/markup/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramHash identifies a program by the canonical form of its raw JSON.
// Two files that differ only in whitespace or key order hash the same.
func ProgramHash(raw []byte) (string, error) {
	v, err := DecodeValue(raw)
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to decode: %w", err)
	}
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// StateHash identifies a state snapshot.
func StateHash(snapshot map[string]any) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MarkupHash identifies rendered HTML.
func MarkupHash(markup string) string {
	return hashWithDomain(DomainMarkup, []byte(markup))
}
