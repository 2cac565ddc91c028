package app

import (
	"context"
	"net/http"

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
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine    *goroutine.Manager
	validator    validator.Validator
	clock        clock.Clocker
	hmac         hash.Hash
	password     hash.Hash
	uid          uid.NumberID
	uuid         uid.StringID
	totp         otp.OTP
	jwt          jwt.JWT
	mfaEncryptor mfa.Encryptor

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	mail      mail.Mail
	messaging messaging.Publisher

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initMigrations()
	app.initCache()
	app.initMail()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
