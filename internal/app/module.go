package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/shopauth/internal/twofactor"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.twofactor.enabled") {
		if err := twofactor.New(twofactor.Dependency{
			Config:       a.config,
			Instrument:   a.ins,
			UID:          a.uid,
			UUID:         a.uuid,
			HMAC:         a.hmac,
			Password:     a.password,
			MFAEncryptor: a.mfaEncryptor,
			Clock:        a.clock,
			Validator:    a.validator,
			Router:       a.router,
			Totp:         a.totp,
			DBConn:       a.dbConn,
			CacheConn:    a.cacheConn,
			Idempotency:  a.idemp,
			Messaging:    a.messaging,
			Mail:         a.mail,
			Goroutine:    a.goroutine,
			JWT:          a.jwt,
		}); err != nil {
			slog.Error("failed to init module twofactor", "error", err)
			os.Exit(1)
		}
	}
}
