package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

const (
	// DefaultIdentityDomain is used when no domain is configured
	DefaultIdentityDomain = "example.com"

	// unknownSeed stands in for works with no usable author name
	unknownSeed = "unknown"

	digestLen = 10
)

// SyntheticEmail produces a stable placeholder address for works that
// carry no explicit email: user_<10-hex-digest>@<domain>. The digest is
// a truncated SHA-1 of the name, so the same name and domain always map
// to the same address across calls and processes.
func SyntheticEmail(name, domain string) string {
	if name == "" {
		name = unknownSeed
	}
	if domain == "" {
		domain = DefaultIdentityDomain
	}
	sum := sha1.Sum([]byte(name))
	return fmt.Sprintf("user_%s@%s", hex.EncodeToString(sum[:])[:digestLen], domain)
}
