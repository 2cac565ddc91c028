package inbound

import (
	"github.com/shandysiswandi/shopauth/internal/pkg/router"
	"github.com/shandysiswandi/shopauth/internal/twofactor/usecase"
)

// HTTPEndpoint exposes HTTP handlers for login and two-factor management.
type HTTPEndpoint struct {
	uc uc
}

// Login checks email and password. Accounts with two-factor enabled get a
// challenge token instead of an access token.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		MfaRequired:    resp.MfaRequired,
		ChallengeToken: resp.ChallengeToken,
		AccessToken:    resp.AccessToken,
	}, nil
}

// Login2FA exchanges a login challenge and a TOTP code for an access token.
func (h *HTTPEndpoint) Login2FA(r *router.Request) (any, error) {
	var req Login2FARequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login2FA(r.Context(), usecase.Login2FAInput{
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
	})
	if err != nil {
		return nil, err
	}

	return Login2FAResponse{AccessToken: resp.AccessToken}, nil
}

func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	resp, err := h.uc.Status(r.Context())
	if err != nil {
		return nil, err
	}

	return StatusResponse{Enabled: resp.Enabled, EnabledAt: resp.EnabledAt}, nil
}

// Setup starts an enrollment and returns the secret in text, URI and QR form.
func (h *HTTPEndpoint) Setup(r *router.Request) (any, error) {
	var req SetupRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Setup(r.Context(), usecase.SetupInput{CurrentPassword: req.CurrentPassword})
	if err != nil {
		return nil, err
	}

	return SetupResponse{
		ChallengeToken: resp.ChallengeToken,
		Secret:         resp.Secret,
		OTPAuthURL:     resp.OTPAuthURL,
		QRCodeURL:      resp.QRCodeURL,
	}, nil
}

func (h *HTTPEndpoint) Enable(r *router.Request) (any, error) {
	var req EnableRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Enable(r.Context(), usecase.EnableInput{
		ChallengeToken: req.ChallengeToken,
		Code:           req.Code,
	}); err != nil {
		return nil, err
	}

	return nil, nil
}

func (h *HTTPEndpoint) Disable(r *router.Request) (any, error) {
	var req DisableRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Disable(r.Context(), usecase.DisableInput{
		CurrentPassword: req.CurrentPassword,
		Code:            req.Code,
	}); err != nil {
		return nil, err
	}

	return nil, nil
}
