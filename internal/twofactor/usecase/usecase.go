package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/shopauth/internal/pkg/clock"
	"github.com/shandysiswandi/shopauth/internal/pkg/config"
	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
	"github.com/shandysiswandi/shopauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/shopauth/internal/pkg/hash"
	"github.com/shandysiswandi/shopauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/shopauth/internal/pkg/instrument"
	"github.com/shandysiswandi/shopauth/internal/pkg/jwt"
	"github.com/shandysiswandi/shopauth/internal/pkg/mail"
	"github.com/shandysiswandi/shopauth/internal/pkg/mfa"
	"github.com/shandysiswandi/shopauth/internal/pkg/otp"
	"github.com/shandysiswandi/shopauth/internal/pkg/uid"
	"github.com/shandysiswandi/shopauth/internal/pkg/validator"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	flowLogin   = "login"
	flowEnable  = "enable"
	flowDisable = "disable"

	resultSuccess  = "success"
	resultInvalid  = "invalid"
	resultReplayed = "replayed"
	resultLimited  = "limited"
	resultError    = "error"
)

const (
	defaultSetupTTL      = 10 * time.Minute
	defaultLoginTTL      = 5 * time.Minute
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute
)

var (
	errInvalidCode      = goerror.NewBusiness("invalid code", goerror.CodeUnauthorized)
	errInvalidChallenge = goerror.NewBusiness("invalid challenge session", goerror.CodeUnauthorized)
	errInvalidLogin     = goerror.NewBusiness("invalid email or password", goerror.CodeUnauthorized)
	errInvalidPassword  = goerror.NewBusiness("invalid password", goerror.CodeUnauthorized)
	errAuthRequired     = goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	errTooManyAttempts  = goerror.NewBusiness("too many attempts, try again later", goerror.CodeTooManyRequest)
	errAlreadyEnabled   = goerror.NewBusiness("two-factor authentication is already enabled", goerror.CodeConflict)
	errNotEnabled       = goerror.NewBusiness("two-factor authentication is not enabled", goerror.CodeConflict)
)

type repoDB interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)

	EnableTwoFactor(ctx context.Context, userID int64, secret []byte, at time.Time) error
	DisableTwoFactor(ctx context.Context, userID int64) error
	UpdateTwoFactorLastUsedAt(ctx context.Context, userID int64, at time.Time) error
}

type repoCache interface {
	SavePendingEnrollment(ctx context.Context, token string, in entity.PendingEnrollment, ttl time.Duration) error
	GetPendingEnrollment(ctx context.Context, token string) (*entity.PendingEnrollment, error)
	DeletePendingEnrollment(ctx context.Context, token string) error

	SaveLoginChallenge(ctx context.Context, token string, in entity.LoginChallenge, ttl time.Duration) error
	GetLoginChallenge(ctx context.Context, token string) (*entity.LoginChallenge, error)
	DeleteLoginChallenge(ctx context.Context, token string) error

	ClaimAttempt(ctx context.Context, userID int64, window time.Duration) (int64, error)
	ClearFailedAttempts(ctx context.Context, userID int64) error
}

type repoMessaging interface {
	PublishTwoFactorEnabled(ctx context.Context, ev entity.TwoFactorEvent) error
	PublishTwoFactorDisabled(ctx context.Context, ev entity.TwoFactorEvent) error
}

type Usecase struct {
	repoDB        repoDB
	repoCache     repoCache
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	password      hash.Hash
	mfaEncryptor  mfa.Encryptor
	uid           uid.NumberID
	uuid          uid.StringID
	totp          otp.OTP
	clock         clock.Clocker
	jwt           jwt.JWT
	mail          mail.Mail
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager

	verifyCounter metric.Int64Counter
}

type Dependency struct {
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	Password      hash.Hash
	MFAEncryptor  mfa.Encryptor
	UID           uid.NumberID
	UUID          uid.StringID
	Totp          otp.OTP
	Clock         clock.Clocker
	JWT           jwt.JWT
	Mail          mail.Mail
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	counter, err := dep.Instrument.Meter("twofactor.usecase").Int64Counter(
		"twofactor.verify.attempts",
		metric.WithDescription("Number of TOTP verifications by flow and result"),
	)
	if err != nil {
		slog.Error("failed to create twofactor verify counter", "error", err)
	}

	return &Usecase{
		repoDB:        dep.RepoDB,
		repoCache:     dep.RepoCache,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		password:      dep.Password,
		mfaEncryptor:  dep.MFAEncryptor,
		uid:           dep.UID,
		uuid:          dep.UUID,
		totp:          dep.Totp,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		mail:          dep.Mail,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
		verifyCounter: counter,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("twofactor.usecase").Start(ctx, name)
}

// tolerance reads modules.twofactor.tolerance_steps. An unset key means
// otp.DefaultTolerance; an explicit 0 accepts only the current step.
func (s *Usecase) tolerance() int {
	if !s.cfg.IsSet("modules.twofactor.tolerance_steps") {
		return otp.DefaultTolerance
	}
	return max(0, s.cfg.GetInt("modules.twofactor.tolerance_steps"))
}

func (s *Usecase) durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// currentUser resolves the bearer of the access token to a stored user.
func (s *Usecase) currentUser(ctx context.Context) (*entity.User, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, errAuthRequired
	}

	user, err := s.repoDB.GetUserByID(ctx, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "user_id", clm.UserID)
		return nil, errAuthRequired
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return user, nil
}

func (s *Usecase) hashToken(ctx context.Context, token string) (string, error) {
	sum, err := s.hmac.Hash(token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash challenge token", "error", err)
		return "", goerror.NewServer(err)
	}
	return string(sum), nil
}

func (s *Usecase) sealSecret(ctx context.Context, userID int64, secret string, p mfa.Purpose) ([]byte, error) {
	sealed, err := s.mfaEncryptor.Encrypt([]byte(secret), mfa.Scope{UserID: userID, Purpose: p})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encrypt totp secret", "user_id", userID, "purpose", p, "error", err)
		return nil, goerror.NewServer(err)
	}
	return sealed, nil
}

// openSecret never fails the request by itself: an unreadable secret
// verifies nothing, so callers surface it as an invalid code.
func (s *Usecase) openSecret(ctx context.Context, userID int64, sealed []byte, p mfa.Purpose) (string, bool) {
	plain, err := s.mfaEncryptor.Decrypt(sealed, mfa.Scope{UserID: userID, Purpose: p})
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "user_id", userID, "purpose", p, "error", err)
		return "", false
	}
	return string(plain), true
}

func (s *Usecase) recordVerify(ctx context.Context, flow, result string) {
	if s.verifyCounter == nil {
		return
	}
	s.verifyCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("result", result),
	))
}

// verifyCode checks a submitted code against secret for the user. Every call
// claims one attempt from the user's window before the code is evaluated, so
// concurrent guesses cannot share a stale count. A success consumes the
// matched time step and resets the window.
func (s *Usecase) verifyCode(ctx context.Context, flow string, userID int64, secret, code string, secretOK bool) error {
	maxAttempts := int64(s.cfg.GetInt("modules.twofactor.max_attempts"))
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	window := s.durationOr(s.cfg.GetSecond("modules.twofactor.attempt_window_seconds"), defaultAttemptWindow)

	attempts, err := s.repoCache.ClaimAttempt(ctx, userID, window)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo claim verification attempt", "user_id", userID, "error", err)
		s.recordVerify(ctx, flow, resultError)
		return goerror.NewServer(err)
	}
	if attempts > maxAttempts {
		slog.WarnContext(ctx, "too many totp attempts", "user_id", userID, "attempts", attempts, "flow", flow)
		s.recordVerify(ctx, flow, resultLimited)
		return errTooManyAttempts
	}

	if !secretOK {
		s.recordVerify(ctx, flow, resultError)
		return errInvalidCode
	}

	step, ok := s.totp.Match(secret, code, s.tolerance())
	if !ok {
		slog.WarnContext(ctx, "invalid totp code", "user_id", userID, "flow", flow)
		s.recordVerify(ctx, flow, resultInvalid)
		return errInvalidCode
	}

	tol := min(s.tolerance(), otp.MaxTolerance)
	replayTTL := time.Duration(2*tol+1) * otp.Period * time.Second

	state, err := s.idemp.Acquire(ctx, replayKey(userID, step), replayTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to claim totp time step", "user_id", userID, "error", err)
		s.recordVerify(ctx, flow, resultError)
		return goerror.NewServer(err)
	}
	if state != idempotency.StateNone {
		slog.WarnContext(ctx, "totp code already used", "user_id", userID, "flow", flow)
		s.recordVerify(ctx, flow, resultReplayed)
		return errInvalidCode
	}

	if err := s.repoCache.ClearFailedAttempts(ctx, userID); err != nil {
		slog.WarnContext(ctx, "failed to repo clear failed attempts", "user_id", userID, "error", err)
	}

	s.recordVerify(ctx, flow, resultSuccess)
	return nil
}

func replayKey(userID int64, step uint64) string {
	return fmt.Sprintf("twofactor:totp:%d:%d", userID, step)
}
