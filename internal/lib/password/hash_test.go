package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHashAndCompare(t *testing.T) {
	hash, err := GetHash("supersecret1")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "supersecret1", hash)

	assert.NoError(t, CompareHash(hash, "supersecret1"))
	assert.Error(t, CompareHash(hash, "wrongpassword"))
}

func TestCompareHash_InvalidHash(t *testing.T) {
	err := CompareHash("not-a-bcrypt-hash", "whatever")
	assert.Error(t, err)
}
