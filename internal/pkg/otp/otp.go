package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	libotp "github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/shandysiswandi/shopauth/internal/pkg/base32"
	"github.com/shandysiswandi/shopauth/internal/pkg/clock"
)

const (
	// Period is the length of one time step in seconds.
	Period = 30
	// Digits is the length of every generated code.
	Digits = 6
	// DefaultSecretSize is the number of random bytes behind a new secret.
	DefaultSecretSize = 32
	// DefaultTolerance is the number of steps accepted on each side of now.
	DefaultTolerance = 1
	// MaxTolerance caps the scan so a misconfigured window stays cheap.
	MaxTolerance = 10

	DefaultIssuer     = "jquerynativePHPapi"
	DefaultQREndpoint = "https://api.qrserver.com/v1/create-qr-code/"
	qrSize            = "300x300"
)

// ErrRandomSource is wrapped by GenerateSecret when the secure random source fails.
var ErrRandomSource = errors.New("otp: secure random source unavailable")

// OTP defines the contract for TOTP operations.
type OTP interface {
	// GenerateSecret draws byteLength random bytes and returns them Base32 encoded.
	GenerateSecret(byteLength int) (string, error)
	// EnrollmentURL wraps the provisioning URI into the QR rendering endpoint.
	EnrollmentURL(secret, accountName, issuer string) string
	// ProvisioningURI builds the otpauth:// URI read by authenticator apps.
	ProvisioningURI(secret, accountName, issuer string) string
	// ComputeCode derives the code for a raw secret and time step.
	ComputeCode(secret []byte, counter uint64) string
	// Verify reports whether code is valid now within tolerance steps.
	Verify(secret, code string, tolerance int) bool
	// Match is Verify that also returns the matched time step.
	Match(secret, code string, tolerance int) (uint64, bool)
	// Counter returns the time step that contains at.
	Counter(at time.Time) uint64
}

// Config holds the construction options of TOTP.
type Config struct {
	Issuer     string
	QREndpoint string
	Clock      clock.Clocker
	Random     io.Reader
}

// TOTP implements OTP with HMAC-SHA1, 30 second steps and 6 digit codes.
type TOTP struct {
	issuer     string
	qrEndpoint string
	clock      clock.Clocker
	random     io.Reader
}

// NewTOTP constructs a TOTP instance with sensible defaults.
//
// An empty issuer or endpoint falls back to DefaultIssuer and DefaultQREndpoint,
// a nil clock reads the system time and a nil random source uses crypto/rand.
func NewTOTP(cfg Config) *TOTP {
	o := &TOTP{
		issuer:     strings.TrimSpace(cfg.Issuer),
		qrEndpoint: strings.TrimSpace(cfg.QREndpoint),
		clock:      cfg.Clock,
		random:     cfg.Random,
	}

	if o.issuer == "" {
		o.issuer = DefaultIssuer
	}
	if o.qrEndpoint == "" {
		o.qrEndpoint = DefaultQREndpoint
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.random == nil {
		o.random = rand.Reader
	}

	return o
}

// GenerateSecret draws byteLength random bytes and returns them Base32 encoded.
// A non-positive length selects DefaultSecretSize.
func (o *TOTP) GenerateSecret(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultSecretSize
	}

	buf := make([]byte, byteLength)
	if _, err := io.ReadFull(o.random, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRandomSource, err)
	}

	return base32.Encode(buf), nil
}

// ProvisioningURI builds
// otpauth://totp/{issuer:account}?secret=..&issuer=..&accountname=..
// with the query fields kept in that order. The label and every value are
// form encoded (space as '+', '=' padding as %3D), the layout shop clients
// have always received.
func (o *TOTP) ProvisioningURI(secret, accountName, issuer string) string {
	if issuer == "" {
		issuer = o.issuer
	}

	var sb strings.Builder
	sb.WriteString("otpauth://totp/")
	sb.WriteString(url.QueryEscape(issuer + ":" + accountName))
	sb.WriteString("?secret=")
	sb.WriteString(url.QueryEscape(secret))
	sb.WriteString("&issuer=")
	sb.WriteString(url.QueryEscape(issuer))
	sb.WriteString("&accountname=")
	sb.WriteString(url.QueryEscape(accountName))

	return sb.String()
}

// EnrollmentURL returns the provisioning URI embedded as the data parameter of
// the QR rendering endpoint. No request is made.
func (o *TOTP) EnrollmentURL(secret, accountName, issuer string) string {
	sep := "?"
	if strings.Contains(o.qrEndpoint, "?") {
		sep = "&"
	}

	return o.qrEndpoint + sep + "size=" + qrSize + "&data=" + url.QueryEscape(o.ProvisioningURI(secret, accountName, issuer))
}

// ComputeCode derives the RFC 4226 code for secret at counter.
func (o *TOTP) ComputeCode(secret []byte, counter uint64) string {
	return computeCode(secret, counter)
}

// Counter returns the time step that contains at. Instants before the epoch map to 0.
func (o *TOTP) Counter(at time.Time) uint64 {
	sec := at.Unix()
	if sec < 0 {
		return 0
	}

	return uint64(sec) / Period
}

// Verify reports whether code is valid for secret now, scanning tolerance steps
// on both sides. It never fails loudly: a malformed code or secret is simply false.
func (o *TOTP) Verify(secret, code string, tolerance int) bool {
	_, ok := o.Match(secret, code, tolerance)
	return ok
}

// Match is Verify that also returns the time step the code was issued for.
func (o *TOTP) Match(secret, code string, tolerance int) (uint64, bool) {
	code = strings.TrimSpace(code)
	if !ValidCode(code) {
		return 0, false
	}

	key, err := base32.Decode(strings.TrimSpace(secret))
	if err != nil || len(key) == 0 {
		return 0, false
	}

	tolerance = max(0, min(tolerance, MaxTolerance))
	current := o.Counter(o.clock.Now())

	for i := -tolerance; i <= tolerance; i++ {
		if i < 0 && uint64(-i) > current {
			continue
		}

		step := current + uint64(i) //nolint:gosec // negative i is bounded by the check above
		if subtle.ConstantTimeCompare([]byte(computeCode(key, step)), []byte(code)) == 1 {
			return step, true
		}
	}

	return 0, false
}

// ValidCode reports whether s is exactly six ASCII digits.
func ValidCode(s string) bool {
	if len(s) != Digits {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

// computeCode returns "" only when hotp rejects the key encoding, which
// never matches a valid code.
func computeCode(secret []byte, counter uint64) string {
	code, err := hotp.GenerateCodeCustom(base32.Encode(secret), counter, hotp.ValidateOpts{
		Digits:    libotp.DigitsSix,
		Algorithm: libotp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("failed to generate hotp code", "error", err)
		return ""
	}

	return code
}
