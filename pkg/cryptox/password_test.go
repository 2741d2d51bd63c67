package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var cheap = Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}

func TestHashAndVerify(t *testing.T) {
	h := NewHasher("pepper").WithParams(cheap)

	tests := []struct {
		name     string
		password string
	}{
		{"simple", "password123"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"markup", "<script>alert(1)</script>"},
		{"long", strings.Repeat("a", 100)},
		{"unicode", "пароль🔒密码"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, h.Verify(tt.password, hash))
			require.ErrorIs(t, h.Verify(tt.password+"x", hash), ErrMismatch)
		})
	}
}

func TestHashIsSalted(t *testing.T) {
	h := NewHasher("").WithParams(cheap)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestPepperIsRequired(t *testing.T) {
	hash, err := NewHasher("one").WithParams(cheap).Hash("secret")
	require.NoError(t, err)
	require.ErrorIs(t, NewHasher("two").Verify("secret", hash), ErrMismatch)
}

func TestVerifyUsesStoredParams(t *testing.T) {
	hash, err := NewHasher("p").WithParams(cheap).Hash("secret")
	require.NoError(t, err)
	require.NoError(t, NewHasher("p").Verify("secret", hash), "default params must still verify cheap hashes")
}

func TestVerifyInvalidHash(t *testing.T) {
	h := NewHasher("")
	for _, bad := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
	} {
		require.ErrorIs(t, h.Verify("x", bad), ErrInvalidHash, bad)
	}
}
