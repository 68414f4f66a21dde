package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	token, err := codec.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := codec.Verify(token)
	assert.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestTokenCodec_RejectsExpired(t *testing.T) {
	// Negative TTL yields a token that is already past its expiry.
	codec := NewTokenCodec("test-secret", -time.Minute)

	token, err := codec.Issue("alice")
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenCodec("secret-one", time.Hour)
	verifier := NewTokenCodec("secret-two", time.Hour)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodec_RejectsGarbage(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Verify(tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q should be rejected", tokenString)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, CheckPassword(hash, "s3cret-password"))
	assert.False(t, CheckPassword(hash, "wrong-password"))
}
