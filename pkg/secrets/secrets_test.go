package secrets_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storytime/pkg/secrets"
)

func newSealer(t *testing.T, master []byte, purpose string) *secrets.Sealer {
	t.Helper()
	s, err := secrets.NewSealer(master, purpose)
	require.NoError(t, err)
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	t.Parallel()

	master, err := secrets.GenerateKey()
	require.NoError(t, err)
	s := newSealer(t, master, "session")

	plain := []byte(`{"access_token":"abc"}`)
	sealed, err := s.Seal(plain)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "abc")

	again, err := s.Seal(plain)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces differ")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestSealer_PurposeSeparation(t *testing.T) {
	t.Parallel()

	master, err := secrets.GenerateKey()
	require.NoError(t, err)

	sealed, err := newSealer(t, master, "session").Seal([]byte("value"))
	require.NoError(t, err)

	_, err = newSealer(t, master, "other").Open(sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestSealer_Errors(t *testing.T) {
	t.Parallel()

	_, err := secrets.NewSealer([]byte("short"), "session")
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)

	master, err := secrets.GenerateKey()
	require.NoError(t, err)
	s := newSealer(t, master, "session")

	_, err = s.Open([]byte("tiny"))
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)

	sealed, err := s.Seal([]byte("value"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestNewSealerFromString(t *testing.T) {
	t.Parallel()

	master, err := secrets.GenerateKey()
	require.NoError(t, err)

	std, err := secrets.NewSealerFromString(base64.StdEncoding.EncodeToString(master), "session")
	require.NoError(t, err)
	url, err := secrets.NewSealerFromString(base64.URLEncoding.EncodeToString(master), "session")
	require.NoError(t, err)

	sealed, err := std.Seal([]byte("value"))
	require.NoError(t, err)
	opened, err := url.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "value", string(opened))

	_, err = secrets.NewSealerFromString("!!not base64!!", "session")
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)

	_, err = secrets.NewSealerFromString(base64.StdEncoding.EncodeToString([]byte("short")), "session")
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)
}
