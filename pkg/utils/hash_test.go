package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hashed)
	assert.True(t, CheckPassword("secret1", hashed))
	assert.False(t, CheckPassword("secret2", hashed))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("12345")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
