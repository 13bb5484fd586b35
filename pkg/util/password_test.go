package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, VerifyPassword(hash, "hunter2"))
	assert.ErrorIs(t, VerifyPassword(hash, "hunter3"), ErrPasswordMismatch)
}

func TestVerifyPassword_UnusableHash(t *testing.T) {
	err := VerifyPassword("not-a-bcrypt-hash", "hunter2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	assert.Error(t, err)
}
