// Package mfa seals second-factor secrets before they leave the process.
//
// TOTP secrets are stored as AES-256-GCM ciphertext bound to the owning user
// and a purpose through the GCM additional data, so a row copied onto another
// user, or a pending enrollment replayed as an active one, fails to open.
package mfa

// Purpose identifies what a sealed value is used for.
type Purpose string

const (
	// PurposeTOTPSecret seals the active secret stored on the user row.
	PurposeTOTPSecret Purpose = "totp_secret"
	// PurposePendingTOTP seals a generated secret awaiting confirmation.
	PurposePendingTOTP Purpose = "totp_pending"
)

// Scope binds a ciphertext to its owner and purpose.
type Scope struct {
	UserID  int64
	Purpose Purpose
}

// Encryptor seals and opens small secrets.
type Encryptor interface {
	Encrypt(plaintext []byte, scope Scope) ([]byte, error)
	Decrypt(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider resolves AES-256 keys by id. Current names the id new
// ciphertexts are sealed with; older ids stay readable until rotated out.
type KeyProvider interface {
	Current() uint16
	Key(id uint16) ([]byte, error)
}
