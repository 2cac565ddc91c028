package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/shopauth/internal/pkg/base32"
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
	"github.com/shandysiswandi/shopauth/internal/pkg/validator"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
modules:
  twofactor:
    issuer: Shop
    tolerance_steps: 1
    secret_bytes: 20
    setup_ttl_minutes: 10
    login_ttl_minutes: 5
    max_attempts: 3
    attempt_window_seconds: 900
`

const testPassword = "correct horse battery"

// fakeDB keeps users in memory and enforces the same conditional updates as
// the postgres adapter.
type fakeDB struct {
	mu       sync.Mutex
	users    map[int64]*entity.User
	lastUsed map[int64]time.Time
	err      error
}

func newFakeDB(users ...*entity.User) *fakeDB {
	db := &fakeDB{users: map[int64]*entity.User{}, lastUsed: map[int64]time.Time{}}
	for _, u := range users {
		db.users[u.ID] = u
	}
	return db
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeDB) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeDB) EnableTwoFactor(_ context.Context, userID int64, secret []byte, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok || u.TwoFactorEnabled {
		return goerror.ErrConflict
	}
	u.TwoFactorEnabled = true
	u.TwoFactorSecret = secret
	u.TwoFactorEnabledAt = &at
	return nil
}

func (f *fakeDB) DisableTwoFactor(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok || !u.TwoFactorEnabled {
		return goerror.ErrConflict
	}
	u.TwoFactorEnabled = false
	u.TwoFactorSecret = nil
	u.TwoFactorEnabledAt = nil
	return nil
}

func (f *fakeDB) UpdateTwoFactorLastUsedAt(_ context.Context, userID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastUsed[userID] = at
	return nil
}

type fakeCache struct {
	mu       sync.Mutex
	pending  map[string]entity.PendingEnrollment
	login    map[string]entity.LoginChallenge
	attempts map[int64]int64

	// claimDelay stands in for the redis round trip before the counter moves.
	claimDelay time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		pending:  map[string]entity.PendingEnrollment{},
		login:    map[string]entity.LoginChallenge{},
		attempts: map[int64]int64{},
	}
}

func (f *fakeCache) SavePendingEnrollment(_ context.Context, token string, in entity.PendingEnrollment, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[token] = in
	return nil
}

func (f *fakeCache) GetPendingEnrollment(_ context.Context, token string) (*entity.PendingEnrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[token]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &p, nil
}

func (f *fakeCache) DeletePendingEnrollment(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, token)
	return nil
}

func (f *fakeCache) SaveLoginChallenge(_ context.Context, token string, in entity.LoginChallenge, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.login[token] = in
	return nil
}

func (f *fakeCache) GetLoginChallenge(_ context.Context, token string) (*entity.LoginChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.login[token]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &c, nil
}

func (f *fakeCache) DeleteLoginChallenge(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.login, token)
	return nil
}

func (f *fakeCache) ClaimAttempt(_ context.Context, userID int64, _ time.Duration) (int64, error) {
	time.Sleep(f.claimDelay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[userID]++
	return f.attempts[userID], nil
}

func (f *fakeCache) ClearFailedAttempts(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attempts, userID)
	return nil
}

type fakeMessaging struct {
	mu     sync.Mutex
	events []entity.TwoFactorEvent
}

func (f *fakeMessaging) PublishTwoFactorEnabled(_ context.Context, ev entity.TwoFactorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeMessaging) PublishTwoFactorDisabled(_ context.Context, ev entity.TwoFactorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type fakeMail struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (*fakeMail) Close() error { return nil }

type seqNumber struct{ n int64 }

func (s *seqNumber) Generate() int64 {
	s.n++
	return s.n
}

type seqToken struct{ n int }

func (s *seqToken) Generate() string {
	s.n++
	return "token-" + strings.Repeat("t", s.n)
}

type harness struct {
	uc    *Usecase
	db    *fakeDB
	cache *fakeCache
	msg   *fakeMessaging
	mail  *fakeMail
	clock *clock.FixedClocker
	totp  *otp.TOTP
	enc   *mfa.AESGCMEncryptor
	jwt   *jwt.Symmetric
	gm    *goroutine.Manager
	idemp *idempotency.StateTracker
}

func newHarness(t *testing.T, users ...*entity.User) *harness {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)

	val, err := validator.NewV10Validator()
	require.NoError(t, err)

	ring, err := mfa.NewKeyRing(1, []byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	clk := clock.NewFixedUnix(1_700_000_000)
	tokens, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(strings.Repeat("s", 64)),
		Issuer:    "shopauth",
		Audiences: []string{"shop-web"},
		Clock:     clk,
		UUID:      &seqToken{},
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		db:    newFakeDB(users...),
		cache: newFakeCache(),
		msg:   &fakeMessaging{},
		mail:  &fakeMail{},
		clock: clk,
		totp:  otp.NewTOTP(otp.Config{Issuer: "Shop", Clock: clk}),
		enc:   mfa.NewAESGCMEncryptor(ring),
		jwt:   tokens,
		gm:    goroutine.NewManager(10),
		idemp: idempotency.New(rdb, ""),
	}

	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoCache:     h.cache,
		RepoMessaging: h.msg,
		Idempotency:   h.idemp,
		Validator:     val,
		Config:        cfg,
		HMAC:          hash.NewHMACSHA256("challenge-key"),
		Password:      hash.NewBcrypt(4, ""),
		MFAEncryptor:  h.enc,
		UID:           &seqNumber{},
		UUID:          &seqToken{},
		Totp:          h.totp,
		Clock:         clk,
		JWT:           tokens,
		Mail:          h.mail,
		Instrument:    instrument.NewNoop(),
		Goroutine:     h.gm,
	})

	return h
}

func passwordHash(t *testing.T) string {
	t.Helper()

	b, err := hash.NewBcrypt(4, "").Hash(testPassword)
	require.NoError(t, err)
	return string(b)
}

// enabledUser returns a user with two-factor on and the plaintext secret.
func (h *harness) enabledUser(t *testing.T, id int64) (*entity.User, string) {
	t.Helper()

	secret, err := h.totp.GenerateSecret(20)
	require.NoError(t, err)

	sealed, err := h.enc.Encrypt([]byte(secret), mfa.Scope{UserID: id, Purpose: mfa.PurposeTOTPSecret})
	require.NoError(t, err)

	at := h.clock.Now().Add(-time.Hour)
	return &entity.User{
		ID:                 id,
		Email:              "buyer@shop.test",
		FullName:           "Buyer",
		Password:           passwordHash(t),
		TwoFactorEnabled:   true,
		TwoFactorSecret:    sealed,
		TwoFactorEnabledAt: &at,
	}, secret
}

func (h *harness) code(t *testing.T, secret string, offset int) string {
	t.Helper()

	key, err := base32.Decode(secret)
	require.NoError(t, err)

	step := int64(h.totp.Counter(h.clock.Now())) + int64(offset)
	return h.totp.ComputeCode(key, uint64(step))
}

func authCtx(id int64) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: id, UserEmail: "buyer@shop.test"})
}

func assertCode(t *testing.T, err error, code goerror.Code, msg string) {
	t.Helper()

	ge, ok := goerror.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, code, ge.Code())
	if msg != "" {
		assert.Equal(t, msg, ge.Msg())
	}
}

func TestLogin_WithoutTwoFactor(t *testing.T) {
	h := newHarness(t, &entity.User{ID: 1, Email: "buyer@shop.test", Password: passwordHash(t)})

	out, err := h.uc.Login(context.Background(), LoginInput{Email: " Buyer@Shop.test ", Password: testPassword})
	require.NoError(t, err)
	assert.False(t, out.MfaRequired)
	require.NotEmpty(t, out.AccessToken)

	clm, err := h.jwt.Verify(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), clm.UserID)
	assert.True(t, clm.HasMethod(jwt.MethodPassword))
	assert.False(t, clm.HasMethod(jwt.MethodOTP))
}

func TestLogin_Failures(t *testing.T) {
	h := newHarness(t, &entity.User{ID: 1, Email: "buyer@shop.test", Password: passwordHash(t)})

	_, err := h.uc.Login(context.Background(), LoginInput{Email: "nobody@shop.test", Password: testPassword})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid email or password")

	_, err = h.uc.Login(context.Background(), LoginInput{Email: "buyer@shop.test", Password: "wrong password"})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid email or password")

	_, err = h.uc.Login(context.Background(), LoginInput{Email: "not-an-email", Password: testPassword})
	assertCode(t, err, goerror.CodeInvalidInput, "")

	h.db.err = errors.New("db down")
	_, err = h.uc.Login(context.Background(), LoginInput{Email: "buyer@shop.test", Password: testPassword})
	assertCode(t, err, goerror.CodeInternal, "")
}

func TestLogin2FA_Flow(t *testing.T) {
	h := newHarness(t)
	user, secret := h.enabledUser(t, 7)
	h.db.users[user.ID] = user

	out, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)
	require.True(t, out.MfaRequired)
	require.NotEmpty(t, out.ChallengeToken)
	assert.Empty(t, out.AccessToken)

	res, err := h.uc.Login2FA(context.Background(), Login2FAInput{
		ChallengeToken: out.ChallengeToken,
		Code:           h.code(t, secret, 0),
	})
	require.NoError(t, err)

	clm, err := h.jwt.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.True(t, clm.HasMethod(jwt.MethodPassword))
	assert.True(t, clm.HasMethod(jwt.MethodOTP))

	require.NoError(t, h.gm.Wait())
	assert.Equal(t, h.clock.Now(), h.db.lastUsed[user.ID])

	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{
		ChallengeToken: out.ChallengeToken,
		Code:           h.code(t, secret, 0),
	})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid challenge session")
}

func TestLogin2FA_AcceptsNeighbourStep(t *testing.T) {
	h := newHarness(t)
	user, secret := h.enabledUser(t, 7)
	h.db.users[user.ID] = user

	out, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)

	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{
		ChallengeToken: out.ChallengeToken,
		Code:           h.code(t, secret, -1),
	})
	require.NoError(t, err)
}

func TestLogin2FA_InvalidCode(t *testing.T) {
	h := newHarness(t)
	user, secret := h.enabledUser(t, 7)
	h.db.users[user.ID] = user

	out, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)

	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{
		ChallengeToken: out.ChallengeToken,
		Code:           h.code(t, secret, 5),
	})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid code")
	assert.Equal(t, int64(1), h.cache.attempts[user.ID])

	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{ChallengeToken: out.ChallengeToken, Code: "12ab56"})
	assertCode(t, err, goerror.CodeInvalidInput, "")

	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{ChallengeToken: "unknown", Code: "123456"})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid challenge session")
}

func TestLogin2FA_RejectsReplay(t *testing.T) {
	h := newHarness(t)
	user, secret := h.enabledUser(t, 7)
	h.db.users[user.ID] = user
	code := h.code(t, secret, 0)

	first, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)
	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{ChallengeToken: first.ChallengeToken, Code: code})
	require.NoError(t, err)

	second, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)
	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{ChallengeToken: second.ChallengeToken, Code: code})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid code")

	h.clock.Advance(otp.Period * time.Second)
	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{
		ChallengeToken: second.ChallengeToken,
		Code:           h.code(t, secret, 0),
	})
	require.NoError(t, err)
}

func TestLogin2FA_AttemptLimit(t *testing.T) {
	h := newHarness(t)
	user, secret := h.enabledUser(t, 7)
	h.db.users[user.ID] = user

	out, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)

	for range 3 {
		_, err = h.uc.Login2FA(context.Background(), Login2FAInput{ChallengeToken: out.ChallengeToken, Code: "000000"})
		require.Error(t, err)
	}

	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{
		ChallengeToken: out.ChallengeToken,
		Code:           h.code(t, secret, 0),
	})
	assertCode(t, err, goerror.CodeTooManyRequest, "")
}

func TestLogin2FA_AttemptLimitUnderConcurrency(t *testing.T) {
	h := newHarness(t)
	user, secret := h.enabledUser(t, 7)
	h.db.users[user.ID] = user
	h.cache.claimDelay = 5 * time.Millisecond

	out, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)
	wrong := h.code(t, secret, 5)

	const requests = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		invalid  int
		limited  int
		unexpect []error
	)
	for range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.uc.Login2FA(context.Background(), Login2FAInput{ChallengeToken: out.ChallengeToken, Code: wrong})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case goerror.HasCode(err, goerror.CodeUnauthorized):
				invalid++
			case goerror.HasCode(err, goerror.CodeTooManyRequest):
				limited++
			default:
				unexpect = append(unexpect, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, unexpect)
	assert.Equal(t, 3, invalid, "codes evaluated")
	assert.Equal(t, requests-3, limited)
	assert.Equal(t, int64(requests), h.cache.attempts[user.ID])
}

func TestLogin2FA_SuccessResetsAttempts(t *testing.T) {
	h := newHarness(t)
	user, secret := h.enabledUser(t, 7)
	h.db.users[user.ID] = user

	out, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)

	for range 2 {
		_, err = h.uc.Login2FA(context.Background(), Login2FAInput{ChallengeToken: out.ChallengeToken, Code: h.code(t, secret, 5)})
		assertCode(t, err, goerror.CodeUnauthorized, "invalid code")
	}
	assert.Equal(t, int64(2), h.cache.attempts[user.ID])

	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{ChallengeToken: out.ChallengeToken, Code: h.code(t, secret, 0)})
	require.NoError(t, err)
	assert.Zero(t, h.cache.attempts[user.ID])
}

func TestTolerance(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{name: "unset uses default", yaml: "modules: {twofactor: {}}", want: otp.DefaultTolerance},
		{name: "explicit zero", yaml: "modules: {twofactor: {tolerance_steps: 0}}", want: 0},
		{name: "configured", yaml: "modules: {twofactor: {tolerance_steps: 2}}", want: 2},
		{name: "negative", yaml: "modules: {twofactor: {tolerance_steps: -4}}", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.NewViperFromBytes("yaml", []byte(tt.yaml))
			require.NoError(t, err)

			uc := &Usecase{cfg: cfg}
			assert.Equal(t, tt.want, uc.tolerance())
		})
	}
}

func TestLogin2FA_CorruptSecretIsInvalidCode(t *testing.T) {
	h := newHarness(t)
	user, secret := h.enabledUser(t, 7)
	user.TwoFactorSecret = []byte("not a ciphertext")
	h.db.users[user.ID] = user

	out, err := h.uc.Login(context.Background(), LoginInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)

	_, err = h.uc.Login2FA(context.Background(), Login2FAInput{
		ChallengeToken: out.ChallengeToken,
		Code:           h.code(t, secret, 0),
	})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid code")
}

func TestSetupEnableDisable(t *testing.T) {
	h := newHarness(t, &entity.User{ID: 3, Email: "buyer@shop.test", FullName: "Buyer", Password: passwordHash(t)})
	ctx := authCtx(3)

	setup, err := h.uc.Setup(ctx, SetupInput{CurrentPassword: testPassword})
	require.NoError(t, err)
	assert.Len(t, setup.Secret, 32)
	assert.True(t, strings.HasPrefix(setup.OTPAuthURL, "otpauth://totp/Shop%3Abuyer%40shop.test?secret="+url.QueryEscape(setup.Secret)))
	assert.True(t, strings.HasPrefix(setup.QRCodeURL, otp.DefaultQREndpoint+"?size=300x300&data=otpauth%3A%2F%2Ftotp%2F"))

	status, err := h.uc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Enabled)
	assert.Nil(t, status.EnabledAt)

	err = h.uc.Enable(ctx, EnableInput{ChallengeToken: setup.ChallengeToken, Code: h.code(t, setup.Secret, 3)})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid code")

	err = h.uc.Enable(ctx, EnableInput{ChallengeToken: setup.ChallengeToken, Code: h.code(t, setup.Secret, 0)})
	require.NoError(t, err)
	assert.Zero(t, h.cache.attempts[3])
	assert.Empty(t, h.cache.pending)

	stored := h.db.users[3]
	require.True(t, stored.TwoFactorEnabled)
	plain, err := h.enc.Decrypt(stored.TwoFactorSecret, mfa.Scope{UserID: 3, Purpose: mfa.PurposeTOTPSecret})
	require.NoError(t, err)
	assert.Equal(t, setup.Secret, string(plain))

	status, err = h.uc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	require.NotNil(t, status.EnabledAt)
	assert.Equal(t, h.clock.Now(), *status.EnabledAt)

	_, err = h.uc.Setup(ctx, SetupInput{CurrentPassword: testPassword})
	assertCode(t, err, goerror.CodeConflict, "two-factor authentication is already enabled")

	err = h.uc.Enable(ctx, EnableInput{ChallengeToken: setup.ChallengeToken, Code: "123456"})
	assertCode(t, err, goerror.CodeConflict, "")

	h.clock.Advance(otp.Period * time.Second)
	err = h.uc.Disable(ctx, DisableInput{CurrentPassword: "wrong password", Code: h.code(t, setup.Secret, 0)})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid password")

	err = h.uc.Disable(ctx, DisableInput{CurrentPassword: testPassword, Code: h.code(t, setup.Secret, 0)})
	require.NoError(t, err)
	assert.False(t, h.db.users[3].TwoFactorEnabled)

	err = h.uc.Disable(ctx, DisableInput{CurrentPassword: testPassword, Code: "123456"})
	assertCode(t, err, goerror.CodeConflict, "two-factor authentication is not enabled")

	require.NoError(t, h.gm.Wait())

	require.Len(t, h.msg.events, 2)
	statuses := []string{h.msg.events[0].Status, h.msg.events[1].Status}
	assert.ElementsMatch(t, []string{"enabled", "disabled"}, statuses)
	for _, ev := range h.msg.events {
		assert.Equal(t, int64(3), ev.UserID)
		assert.NotZero(t, ev.EventID)
	}

	require.Len(t, h.mail.sent, 2)
	subjects := []string{h.mail.sent[0].Subject, h.mail.sent[1].Subject}
	assert.ElementsMatch(t, []string{"Two-factor authentication enabled", "Two-factor authentication disabled"}, subjects)
	assert.Equal(t, []string{"buyer@shop.test"}, h.mail.sent[0].To)
}

func TestEnable_ConfirmationInProgress(t *testing.T) {
	h := newHarness(t, &entity.User{ID: 3, Email: "buyer@shop.test", Password: passwordHash(t)})
	ctx := authCtx(3)

	setup, err := h.uc.Setup(ctx, SetupInput{CurrentPassword: testPassword})
	require.NoError(t, err)

	hashed, err := hash.NewHMACSHA256("challenge-key").Hash(setup.ChallengeToken)
	require.NoError(t, err)
	key := enableKey(string(hashed))

	state, err := h.idemp.Acquire(context.Background(), key, time.Minute)
	require.NoError(t, err)
	require.Equal(t, idempotency.StateNone, state)

	err = h.uc.Enable(ctx, EnableInput{ChallengeToken: setup.ChallengeToken, Code: h.code(t, setup.Secret, 0)})
	assertCode(t, err, goerror.CodeConflict, "two-factor enrollment is already being confirmed")
	assert.False(t, h.db.users[3].TwoFactorEnabled)
	assert.Zero(t, h.cache.attempts[3])

	require.NoError(t, h.idemp.Release(context.Background(), key))

	err = h.uc.Enable(ctx, EnableInput{ChallengeToken: setup.ChallengeToken, Code: h.code(t, setup.Secret, 0)})
	require.NoError(t, err)
	assert.True(t, h.db.users[3].TwoFactorEnabled)

	state, err = h.idemp.Acquire(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, idempotency.StateCompleted, state)
}

func TestEnable_ChallengeOfAnotherUser(t *testing.T) {
	h := newHarness(t,
		&entity.User{ID: 3, Email: "a@shop.test", Password: passwordHash(t)},
		&entity.User{ID: 4, Email: "b@shop.test", Password: passwordHash(t)},
	)

	setup, err := h.uc.Setup(authCtx(3), SetupInput{CurrentPassword: testPassword})
	require.NoError(t, err)

	err = h.uc.Enable(authCtx(4), EnableInput{ChallengeToken: setup.ChallengeToken, Code: h.code(t, setup.Secret, 0)})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid challenge session")
	assert.False(t, h.db.users[4].TwoFactorEnabled)
}

func TestSetup_Failures(t *testing.T) {
	h := newHarness(t, &entity.User{ID: 3, Email: "buyer@shop.test", Password: passwordHash(t)})

	_, err := h.uc.Setup(context.Background(), SetupInput{CurrentPassword: testPassword})
	assertCode(t, err, goerror.CodeUnauthorized, "authentication required")

	_, err = h.uc.Setup(authCtx(99), SetupInput{CurrentPassword: testPassword})
	assertCode(t, err, goerror.CodeUnauthorized, "authentication required")

	_, err = h.uc.Setup(authCtx(3), SetupInput{CurrentPassword: "nope nope"})
	assertCode(t, err, goerror.CodeUnauthorized, "invalid password")

	_, err = h.uc.Setup(authCtx(3), SetupInput{})
	assertCode(t, err, goerror.CodeInvalidInput, "")
}

func TestStatus_Unauthenticated(t *testing.T) {
	h := newHarness(t)

	_, err := h.uc.Status(context.Background())
	assertCode(t, err, goerror.CodeUnauthorized, "")
}

func TestSecurityMail(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msg := securityMail(&entity.User{Email: "buyer@shop.test"}, entity.StatusDisabled, at)
	assert.Equal(t, "Two-factor authentication disabled", msg.Subject)
	assert.Contains(t, msg.TextBody, "Hi buyer@shop.test,")
	assert.Contains(t, msg.TextBody, "turned off")
	assert.Contains(t, msg.TextBody, "Fri, 02 Jan 2026 03:04:05 UTC")
}

func TestReplayKey(t *testing.T) {
	assert.Equal(t, "twofactor:totp:7:56666666", replayKey(7, 56666666))
}
