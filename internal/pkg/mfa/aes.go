package mfa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	headerLen = 2
	aesKeyLen = 32
)

var (
	ErrEncryptorNotConfigured = errors.New("mfa: encryptor not configured")
	ErrPlaintextEmpty         = errors.New("mfa: plaintext is empty")
	ErrInvalidKeyLength       = errors.New("mfa: key must be 32 bytes")
	ErrUnknownKey             = errors.New("mfa: unknown key id")
	ErrCiphertextTooShort     = errors.New("mfa: ciphertext too short")
	// ErrDecryptFailed hides whether the key, the scope or the payload was wrong.
	ErrDecryptFailed = errors.New("mfa: decrypt failed")
)

// AESGCMEncryptor implements Encryptor with AES-256-GCM.
//
// Ciphertext layout: uint16 key id (big endian) | 12 byte nonce | sealed data.
type AESGCMEncryptor struct {
	keys   KeyProvider
	random io.Reader
}

// NewAESGCMEncryptor constructs an AES-GCM encryptor.
func NewAESGCMEncryptor(keys KeyProvider) *AESGCMEncryptor {
	return &AESGCMEncryptor{keys: keys, random: rand.Reader}
}

func (e *AESGCMEncryptor) aead(id uint16) (cipher.AEAD, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}

	key, err := e.keys.Key(id)
	if err != nil {
		return nil, err
	}
	if len(key) != aesKeyLen {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("mfa: aes init: %w", err)
	}
	return cipher.NewGCM(block)
}

func (e *AESGCMEncryptor) Encrypt(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}

	id := e.keys.Current()
	gcm, err := e.aead(id)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerLen+gcm.NonceSize(), headerLen+gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out, id)

	nonce := out[headerLen:]
	if _, err := io.ReadFull(e.random, nonce); err != nil {
		return nil, fmt.Errorf("mfa: nonce: %w", err)
	}

	return gcm.Seal(out, nonce, plaintext, scopeAAD(scope)), nil
}

func (e *AESGCMEncryptor) Decrypt(ciphertext []byte, scope Scope) ([]byte, error) {
	if len(ciphertext) < headerLen {
		return nil, ErrCiphertextTooShort
	}

	gcm, err := e.aead(binary.BigEndian.Uint16(ciphertext))
	if err != nil {
		return nil, err
	}

	body := ciphertext[headerLen:]
	if len(body) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plain, err := gcm.Open(nil, body[:gcm.NonceSize()], body[gcm.NonceSize():], scopeAAD(scope))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

func scopeAAD(s Scope) []byte {
	sum := sha256.Sum256([]byte("uid=" + strconv.FormatInt(s.UserID, 10) + "\npurpose=" + string(s.Purpose) + "\n"))
	return sum[:]
}

// KeyRing is a static KeyProvider loaded from configuration.
type KeyRing struct {
	current uint16
	keys    map[uint16][]byte
}

// NewKeyRing builds a ring whose current key is id. More keys can be added
// with Add so ciphertexts sealed before a rotation still open.
func NewKeyRing(id uint16, key []byte) (*KeyRing, error) {
	r := &KeyRing{current: id, keys: make(map[uint16][]byte)}
	if err := r.Add(id, key); err != nil {
		return nil, err
	}
	return r, nil
}

// Add registers a decryption-only key.
func (r *KeyRing) Add(id uint16, key []byte) error {
	if len(key) != aesKeyLen {
		return fmt.Errorf("%w: key %d has %d bytes", ErrInvalidKeyLength, id, len(key))
	}
	r.keys[id] = append([]byte(nil), key...)
	return nil
}

func (r *KeyRing) Current() uint16 { return r.current }

func (r *KeyRing) Key(id uint16) ([]byte, error) {
	k, ok := r.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKey, id)
	}
	return k, nil
}
