package usecase

import (
	"context"
	"time"
)

type StatusOutput struct {
	Enabled   bool
	EnabledAt *time.Time
}

func (s *Usecase) Status(ctx context.Context) (*StatusOutput, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	out := &StatusOutput{Enabled: user.TwoFactorEnabled}
	if user.TwoFactorEnabled {
		out.EnabledAt = user.TwoFactorEnabledAt
	}

	return out, nil
}
