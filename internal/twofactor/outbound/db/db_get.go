package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
)

const selectUser = `SELECT id, email, full_name, password,
	two_factor_enabled, two_factor_secret, two_factor_enabled_at, two_factor_last_used_at
FROM users`

func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	user, err := scanUser(s.conn.QueryRow(ctx, selectUser+` WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, s.mapError(err)
	}

	return user, nil
}

func (s *DB) GetUserByID(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	user, err := scanUser(s.conn.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Password,
		&u.TwoFactorEnabled,
		&u.TwoFactorSecret,
		&u.TwoFactorEnabledAt,
		&u.TwoFactorLastUsedAt,
	); err != nil {
		return nil, err
	}

	return &u, nil
}
