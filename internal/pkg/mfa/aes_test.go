package mfa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRing(t *testing.T, id uint16, fill byte) *KeyRing {
	t.Helper()

	r, err := NewKeyRing(id, bytes.Repeat([]byte{fill}, 32))
	require.NoError(t, err)
	return r
}

func TestAESGCM_RoundTrip(t *testing.T) {
	enc := NewAESGCMEncryptor(newRing(t, 1, 'a'))
	scope := Scope{UserID: 10, Purpose: PurposeTOTPSecret}

	sealed, err := enc.Encrypt([]byte("JBSWY3DPEHPK3PXP"), scope)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "JBSWY3DPEHPK3PXP")

	plain, err := enc.Decrypt(sealed, scope)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", string(plain))
}

func TestAESGCM_ScopeBinding(t *testing.T) {
	enc := NewAESGCMEncryptor(newRing(t, 1, 'a'))

	sealed, err := enc.Encrypt([]byte("secret"), Scope{UserID: 10, Purpose: PurposeTOTPSecret})
	require.NoError(t, err)

	_, err = enc.Decrypt(sealed, Scope{UserID: 11, Purpose: PurposeTOTPSecret})
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = enc.Decrypt(sealed, Scope{UserID: 10, Purpose: PurposePendingTOTP})
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestAESGCM_Rotation(t *testing.T) {
	old := NewAESGCMEncryptor(newRing(t, 1, 'a'))
	scope := Scope{UserID: 1, Purpose: PurposeTOTPSecret}

	sealed, err := old.Encrypt([]byte("secret"), scope)
	require.NoError(t, err)

	ring := newRing(t, 2, 'b')
	require.NoError(t, ring.Add(1, bytes.Repeat([]byte{'a'}, 32)))
	rotated := NewAESGCMEncryptor(ring)

	plain, err := rotated.Decrypt(sealed, scope)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plain))

	resealed, err := rotated.Encrypt(plain, scope)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 2}, resealed[:2])

	_, err = old.Decrypt(resealed, scope)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestAESGCM_Errors(t *testing.T) {
	enc := NewAESGCMEncryptor(newRing(t, 1, 'a'))
	scope := Scope{UserID: 1, Purpose: PurposeTOTPSecret}

	_, err := enc.Encrypt(nil, scope)
	assert.ErrorIs(t, err, ErrPlaintextEmpty)

	_, err = enc.Decrypt([]byte{0}, scope)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = enc.Decrypt([]byte{0, 1, 2, 3}, scope)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	sealed, err := enc.Encrypt([]byte("secret"), scope)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xFF
	_, err = enc.Decrypt(sealed, scope)
	assert.ErrorIs(t, err, ErrDecryptFailed)

	var nilEnc *AESGCMEncryptor
	_, err = nilEnc.Encrypt([]byte("x"), scope)
	assert.ErrorIs(t, err, ErrEncryptorNotConfigured)

	_, err = NewKeyRing(1, []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}
