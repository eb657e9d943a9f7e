package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h, err := Hash("secret", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "secret", h)
	assert.True(t, Verify(h, "secret"))
	assert.False(t, Verify(h, "Secret"))
	assert.False(t, Verify("", "secret"))
}

func TestHash_Empty(t *testing.T) {
	_, err := Hash("", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmpty)
}
