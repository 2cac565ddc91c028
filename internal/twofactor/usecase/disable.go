package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
	"github.com/shandysiswandi/shopauth/internal/pkg/mfa"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
)

type DisableInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Code            string `json:"code" validate:"required,otpcode"`
}

func (s *Usecase) Disable(ctx context.Context, in DisableInput) error {
	ctx, span := s.startSpan(ctx, "Disable")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}

	if !s.password.Verify(user.Password, in.CurrentPassword) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return errInvalidPassword
	}

	if user.Status() != entity.StatusEnabled {
		return errNotEnabled
	}

	secret, ok := s.openSecret(ctx, user.ID, user.TwoFactorSecret, mfa.PurposeTOTPSecret)
	if err := s.verifyCode(ctx, flowDisable, user.ID, secret, in.Code, ok); err != nil {
		return err
	}

	err = s.repoDB.DisableTwoFactor(ctx, user.ID)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "two-factor disabled concurrently", "user_id", user.ID)
		return errNotEnabled
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo disable two-factor", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	s.notify(ctx, user, entity.StatusDisabled, s.clock.Now())

	return nil
}
