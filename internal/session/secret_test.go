package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainSecret(t *testing.T) {
	assert.True(t, PlainSecret("open sesame").Verify("open sesame"))
	assert.False(t, PlainSecret("open sesame").Verify("open"))
	assert.False(t, PlainSecret("").Verify(""))
}

func TestHashedSecret(t *testing.T) {
	hash, err := HashSecret("changeme")
	require.NoError(t, err)
	assert.Equal(t, "$2a$", string(hash)[:4])

	assert.True(t, hash.Verify("changeme"))
	assert.False(t, hash.Verify("root"))
	assert.False(t, hash.Verify(""))
	assert.False(t, HashedSecret("").Verify("changeme"))
}

func TestNewVerifierPrefersHash(t *testing.T) {
	hash, err := HashSecret("from-hash")
	require.NoError(t, err)

	v := NewVerifier("plain", string(hash))
	assert.True(t, v.Verify("from-hash"))
	assert.False(t, v.Verify("plain"))

	v = NewVerifier("plain", "")
	assert.True(t, v.Verify("plain"))
}
