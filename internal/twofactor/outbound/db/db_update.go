package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
)

// EnableTwoFactor stores the sealed secret and flips the flag on. It returns
// goerror.ErrConflict when the user is missing or already enabled.
func (s *DB) EnableTwoFactor(ctx context.Context, userID int64, secret []byte, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "EnableTwoFactor")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE users
SET two_factor_enabled = TRUE, two_factor_secret = $2, two_factor_enabled_at = $3, updated_at = $3
WHERE id = $1 AND two_factor_enabled = FALSE`, userID, secret, at)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrConflict
	}

	return nil
}

// DisableTwoFactor clears the secret. It returns goerror.ErrConflict when the
// user is missing or not enabled.
func (s *DB) DisableTwoFactor(ctx context.Context, userID int64) (err error) {
	ctx, span := s.startSpan(ctx, "DisableTwoFactor")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE users
SET two_factor_enabled = FALSE, two_factor_secret = NULL, two_factor_enabled_at = NULL,
	two_factor_last_used_at = NULL, updated_at = now()
WHERE id = $1 AND two_factor_enabled = TRUE`, userID)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrConflict
	}

	return nil
}

func (s *DB) UpdateTwoFactorLastUsedAt(ctx context.Context, userID int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateTwoFactorLastUsedAt")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE users SET two_factor_last_used_at = $2
WHERE id = $1 AND two_factor_enabled = TRUE`, userID, at)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
