package twofactor

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/shopauth/internal/pkg/clock"
	"github.com/shandysiswandi/shopauth/internal/pkg/config"
	"github.com/shandysiswandi/shopauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/shopauth/internal/pkg/hash"
	"github.com/shandysiswandi/shopauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/shopauth/internal/pkg/instrument"
	"github.com/shandysiswandi/shopauth/internal/pkg/jwt"
	"github.com/shandysiswandi/shopauth/internal/pkg/mail"
	"github.com/shandysiswandi/shopauth/internal/pkg/messaging"
	"github.com/shandysiswandi/shopauth/internal/pkg/mfa"
	"github.com/shandysiswandi/shopauth/internal/pkg/otp"
	"github.com/shandysiswandi/shopauth/internal/pkg/router"
	"github.com/shandysiswandi/shopauth/internal/pkg/uid"
	"github.com/shandysiswandi/shopauth/internal/pkg/validator"
	"github.com/shandysiswandi/shopauth/internal/twofactor/inbound"
	"github.com/shandysiswandi/shopauth/internal/twofactor/outbound/cache"
	"github.com/shandysiswandi/shopauth/internal/twofactor/outbound/db"
	"github.com/shandysiswandi/shopauth/internal/twofactor/outbound/mq"
	"github.com/shandysiswandi/shopauth/internal/twofactor/usecase"
)

type Dependency struct {
	DBConn       *pgxpool.Pool              `validate:"required"`
	CacheConn    redis.UniversalClient      `validate:"required"`
	Goroutine    *goroutine.Manager         `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Idempotency  idempotency.Idempotency    `validate:"required"`
	Messaging    messaging.Publisher        `validate:"required"`
	Mail         mail.Mail                  `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	UUID         uid.StringID               `validate:"required"`
	HMAC         hash.Hash                  `validate:"required"`
	Password     hash.Hash                  `validate:"required"`
	MFAEncryptor mfa.Encryptor              `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Totp         otp.OTP                    `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
	JWT          jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoCache:     cache.NewCache(dep.CacheConn, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		Password:      dep.Password,
		MFAEncryptor:  dep.MFAEncryptor,
		UID:           dep.UID,
		UUID:          dep.UUID,
		Totp:          dep.Totp,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Mail:          dep.Mail,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
