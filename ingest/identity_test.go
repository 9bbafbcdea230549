package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntheticEmailDeterministic(t *testing.T) {
	first := SyntheticEmail("Ada Lovelace", "")
	second := SyntheticEmail("Ada Lovelace", "")
	assert.Equal(t, first, second)

	// Known digests keep the synthesis stable across processes too
	assert.Equal(t, "user_a69a9f8a46@example.com", first)
	assert.Equal(t, "user_d97e693913@example.com", SyntheticEmail("Grace Hopper", ""))
}

func TestSyntheticEmailDomain(t *testing.T) {
	addr := SyntheticEmail("Ada Lovelace", "scholarstream.dev")
	assert.True(t, strings.HasSuffix(addr, "@scholarstream.dev"), addr)

	// Same name, different domain: same digest
	assert.Equal(t,
		strings.Split(SyntheticEmail("Ada Lovelace", ""), "@")[0],
		strings.Split(addr, "@")[0],
	)
}

func TestSyntheticEmailFallbackSeed(t *testing.T) {
	assert.Equal(t, "user_50d8b4a941@example.com", SyntheticEmail("", ""))
}

func TestSyntheticEmailShape(t *testing.T) {
	addr := SyntheticEmail("Anyone", "")
	assert.Regexp(t, `^user_[0-9a-f]{10}@example\.com$`, addr)
}
