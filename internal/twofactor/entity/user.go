package entity

import "time"

// Status is the two-factor state of an account.
type Status int

const (
	StatusDisabled Status = iota
	StatusEnabled
)

func (s Status) String() string {
	switch s {
	case StatusEnabled:
		return "enabled"
	default:
		return "disabled"
	}
}

// User is the slice of the shop user row the two-factor flows read.
//
// TwoFactorSecret is the sealed Base32 secret, never the plaintext.
type User struct {
	ID                  int64
	Email               string
	FullName            string
	Password            string
	TwoFactorEnabled    bool
	TwoFactorSecret     []byte
	TwoFactorEnabledAt  *time.Time
	TwoFactorLastUsedAt *time.Time
}

func (u User) Status() Status {
	if u.TwoFactorEnabled {
		return StatusEnabled
	}
	return StatusDisabled
}

// PendingEnrollment is a generated secret waiting for its first valid code.
type PendingEnrollment struct {
	UserID int64  `json:"user_id"`
	Secret []byte `json:"secret"`
}

// LoginChallenge links an opaque login token to the user who passed the password step.
type LoginChallenge struct {
	UserID int64 `json:"user_id"`
}
