package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
	"github.com/shandysiswandi/shopauth/internal/pkg/jwt"
	"github.com/shandysiswandi/shopauth/internal/pkg/mfa"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
)

type Login2FAInput struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code" validate:"required,otpcode"`
}

type Login2FAOutput struct {
	AccessToken string
}

func (s *Usecase) Login2FA(ctx context.Context, in Login2FAInput) (*Login2FAOutput, error) {
	ctx, span := s.startSpan(ctx, "Login2FA")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	cTokenHash, err := s.hashToken(ctx, in.ChallengeToken)
	if err != nil {
		return nil, err
	}

	user, err := s.loadChallengeUser(ctx, cTokenHash)
	if err != nil {
		return nil, err
	}

	secret, ok := s.openSecret(ctx, user.ID, user.TwoFactorSecret, mfa.PurposeTOTPSecret)
	if err := s.verifyCode(ctx, flowLogin, user.ID, secret, in.Code, ok); err != nil {
		return nil, err
	}

	if err := s.repoCache.DeleteLoginChallenge(ctx, cTokenHash); err != nil {
		slog.WarnContext(ctx, "failed to repo delete login challenge", "user_id", user.ID, "error", err)
	}

	acToken, err := s.jwt.Generate(user.ID, user.Email, jwt.MethodPassword, jwt.MethodOTP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	usedAt := s.clock.Now()
	if !s.goroutine.Go(ctx, func(ctx context.Context) error {
		return s.touchLastUsed(ctx, user.ID, usedAt)
	}) {
		slog.WarnContext(ctx, "failed to schedule two-factor last used update", "user_id", user.ID)
	}

	return &Login2FAOutput{AccessToken: acToken}, nil
}

func (s *Usecase) loadChallengeUser(ctx context.Context, tokenHash string) (*entity.User, error) {
	chal, err := s.repoCache.GetLoginChallenge(ctx, tokenHash)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "login challenge not found")
		return nil, errInvalidChallenge
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get login challenge", "error", err)
		return nil, goerror.NewServer(err)
	}

	user, err := s.repoDB.GetUserByID(ctx, chal.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "challenge user not found", "user_id", chal.UserID)
		return nil, errInvalidChallenge
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", chal.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if user.Status() != entity.StatusEnabled {
		slog.WarnContext(ctx, "two-factor disabled after login challenge was issued", "user_id", user.ID)
		return nil, errInvalidChallenge
	}

	return user, nil
}

func (s *Usecase) touchLastUsed(ctx context.Context, userID int64, at time.Time) error {
	if err := s.repoDB.UpdateTwoFactorLastUsedAt(ctx, userID, at); err != nil {
		slog.ErrorContext(ctx, "failed to repo update two-factor last used at", "user_id", userID, "error", err)
		return err
	}
	return nil
}
