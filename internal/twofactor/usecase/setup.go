package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
	"github.com/shandysiswandi/shopauth/internal/pkg/mfa"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
)

type SetupInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
}

type SetupOutput struct {
	ChallengeToken string
	Secret         string
	OTPAuthURL     string
	QRCodeURL      string
}

// Setup generates a fresh secret and parks it as a pending enrollment. The
// account stays disabled until Enable sees a valid code for it.
func (s *Usecase) Setup(ctx context.Context, in SetupInput) (*SetupOutput, error) {
	ctx, span := s.startSpan(ctx, "Setup")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if !s.password.Verify(user.Password, in.CurrentPassword) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, errInvalidPassword
	}

	if user.Status() == entity.StatusEnabled {
		return nil, errAlreadyEnabled
	}

	secret, err := s.totp.GenerateSecret(s.cfg.GetInt("modules.twofactor.secret_bytes"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	sealed, err := s.sealSecret(ctx, user.ID, secret, mfa.PurposePendingTOTP)
	if err != nil {
		return nil, err
	}

	cToken := s.uuid.Generate()
	cTokenHash, err := s.hashToken(ctx, cToken)
	if err != nil {
		return nil, err
	}

	ttl := s.durationOr(s.cfg.GetMinute("modules.twofactor.setup_ttl_minutes"), defaultSetupTTL)
	if err := s.repoCache.SavePendingEnrollment(ctx, cTokenHash, entity.PendingEnrollment{
		UserID: user.ID,
		Secret: sealed,
	}, ttl); err != nil {
		slog.ErrorContext(ctx, "failed to repo save pending enrollment", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	issuer := s.cfg.GetString("modules.twofactor.issuer")

	return &SetupOutput{
		ChallengeToken: cToken,
		Secret:         secret,
		OTPAuthURL:     s.totp.ProvisioningURI(secret, user.Email, issuer),
		QRCodeURL:      s.totp.EnrollmentURL(secret, user.Email, issuer),
	}, nil
}
