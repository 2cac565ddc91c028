package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
	"github.com/shandysiswandi/shopauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/shopauth/internal/pkg/mfa"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
)

type EnableInput struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code" validate:"required,otpcode"`
}

const enableLockDuration = 30 * time.Second

var errEnableInProgress = goerror.NewBusiness("two-factor enrollment is already being confirmed", goerror.CodeConflict)

func (s *Usecase) Enable(ctx context.Context, in EnableInput) error {
	ctx, span := s.startSpan(ctx, "Enable")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}

	if user.Status() == entity.StatusEnabled {
		return errAlreadyEnabled
	}

	cTokenHash, err := s.hashToken(ctx, in.ChallengeToken)
	if err != nil {
		return err
	}

	pending, err := s.repoCache.GetPendingEnrollment(ctx, cTokenHash)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "pending enrollment not found", "user_id", user.ID)
		return errInvalidChallenge
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get pending enrollment", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	if pending.UserID != user.ID {
		slog.WarnContext(ctx, "pending enrollment user mismatch", "user_id", user.ID, "enrollment_user_id", pending.UserID)
		return errInvalidChallenge
	}

	var now time.Time
	err = s.idemp.Exec(ctx, enableKey(cTokenHash), func(ctx context.Context) error {
		var err error
		now, err = s.confirmEnrollment(ctx, user, cTokenHash, pending.Secret, in.Code)
		return err
	},
		idempotency.WithLockDuration(enableLockDuration),
		idempotency.WithStateTTL(s.durationOr(s.cfg.GetMinute("modules.twofactor.setup_ttl_minutes"), defaultSetupTTL)),
	)
	switch {
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.WarnContext(ctx, "enrollment confirmation already in progress", "user_id", user.ID)
		return errEnableInProgress
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		return errAlreadyEnabled
	case err != nil:
		if _, ok := goerror.As(err); ok {
			return err
		}
		slog.ErrorContext(ctx, "failed to guard enrollment confirmation", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	s.notify(ctx, user, entity.StatusEnabled, now)

	return nil
}

// confirmEnrollment verifies the code against the pending secret and stores
// it as the user's active secret.
func (s *Usecase) confirmEnrollment(ctx context.Context, user *entity.User, cTokenHash string, pendingSecret []byte, code string) (time.Time, error) {
	secret, ok := s.openSecret(ctx, user.ID, pendingSecret, mfa.PurposePendingTOTP)
	if err := s.verifyCode(ctx, flowEnable, user.ID, secret, code, ok); err != nil {
		return time.Time{}, err
	}

	sealed, err := s.sealSecret(ctx, user.ID, secret, mfa.PurposeTOTPSecret)
	if err != nil {
		return time.Time{}, err
	}

	now := s.clock.Now()
	err = s.repoDB.EnableTwoFactor(ctx, user.ID, sealed, now)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "two-factor enabled concurrently", "user_id", user.ID)
		return time.Time{}, errAlreadyEnabled
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo enable two-factor", "user_id", user.ID, "error", err)
		return time.Time{}, goerror.NewServer(err)
	}

	if err := s.repoCache.DeletePendingEnrollment(ctx, cTokenHash); err != nil {
		slog.WarnContext(ctx, "failed to repo delete pending enrollment", "user_id", user.ID, "error", err)
	}

	return now, nil
}

func enableKey(cTokenHash string) string {
	return "twofactor:enable:" + cTokenHash
}
