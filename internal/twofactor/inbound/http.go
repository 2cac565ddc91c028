package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/shopauth/internal/pkg/router"
	"github.com/shandysiswandi/shopauth/internal/twofactor/usecase"
)

type uc interface {
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	Login2FA(ctx context.Context, in usecase.Login2FAInput) (*usecase.Login2FAOutput, error)

	Status(ctx context.Context) (*usecase.StatusOutput, error)
	Setup(ctx context.Context, in usecase.SetupInput) (*usecase.SetupOutput, error)
	Enable(ctx context.Context, in usecase.EnableInput) error
	Disable(ctx context.Context, in usecase.DisableInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Authentication
	r.Public(http.MethodPost, "/api/v1/auth/login", end.Login)
	r.Public(http.MethodPost, "/api/v1/auth/login/2fa", end.Login2FA)

	// Account security
	r.GET("/api/v1/me/2fa", end.Status)
	r.POST("/api/v1/me/2fa/setup", end.Setup)
	r.POST("/api/v1/me/2fa/enable", end.Enable)
	r.POST("/api/v1/me/2fa/disable", end.Disable)
}
