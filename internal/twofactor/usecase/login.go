package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
	"github.com/shandysiswandi/shopauth/internal/pkg/jwt"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginOutput struct {
	MfaRequired    bool
	ChallengeToken string
	//
	AccessToken string
}

func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "email", in.Email)
		return nil, errInvalidLogin
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.password.Verify(user.Password, in.Password) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, errInvalidLogin
	}

	if user.Status() == entity.StatusEnabled {
		cToken := s.uuid.Generate()
		cTokenHash, err := s.hashToken(ctx, cToken)
		if err != nil {
			return nil, err
		}

		ttl := s.durationOr(s.cfg.GetMinute("modules.twofactor.login_ttl_minutes"), defaultLoginTTL)
		if err := s.repoCache.SaveLoginChallenge(ctx, cTokenHash, entity.LoginChallenge{UserID: user.ID}, ttl); err != nil {
			slog.ErrorContext(ctx, "failed to repo save login challenge", "user_id", user.ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		return &LoginOutput{MfaRequired: true, ChallengeToken: cToken}, nil
	}

	acToken, err := s.jwt.Generate(user.ID, user.Email, jwt.MethodPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LoginOutput{AccessToken: acToken}, nil
}
