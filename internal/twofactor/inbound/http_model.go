package inbound

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	MfaRequired    bool   `json:"mfa_required,omitempty"`
	ChallengeToken string `json:"challenge_token,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`
}

type Login2FARequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

type Login2FAResponse struct {
	AccessToken string `json:"access_token"`
}

type StatusResponse struct {
	Enabled   bool       `json:"enabled"`
	EnabledAt *time.Time `json:"enabled_at"`
}

type SetupRequest struct {
	CurrentPassword string `json:"current_password"`
}

type SetupResponse struct {
	ChallengeToken string `json:"challenge_token"`
	Secret         string `json:"secret"`
	OTPAuthURL     string `json:"otpauth_url"`
	QRCodeURL      string `json:"qr_code_url"`
}

func (SetupResponse) Message() string {
	return "Scan the QR code with your authenticator app, then confirm with a code to enable two-factor authentication."
}

type EnableRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

type DisableRequest struct {
	CurrentPassword string `json:"current_password"`
	Code            string `json:"code"`
}
