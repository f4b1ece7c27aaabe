package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSource    = "wisp/source/v1"
	DomainTree      = "wisp/tree/v1"
	DomainTransform = "wisp/transform/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash identifies raw source text.
func SourceHash(src []byte) string {
	return hashWithDomain(DomainSource, src)
}

// TreeHash identifies a program by structure. Locations do not contribute,
// so reformatting source that parses to the same tree keeps the hash.
func TreeHash(p *Program) (string, error) {
	canonical, err := Canonical(p)
	if err != nil {
		return "", fmt.Errorf("TreeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}

// TransformKey identifies one compile of one file: the source, its logical
// path (diagnostics and native-path checks depend on it), the canonical
// configuration and the compiler version.
func TransformKey(path string, src []byte, configDigest string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"path":     path,
		"source":   SourceHash(src),
		"config":   configDigest,
		"compiler": CompilerVersion,
	})
	if err != nil {
		return "", fmt.Errorf("TransformKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTransform, canonical), nil
}
