package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/shopauth/internal/pkg/goerror"
	"github.com/shandysiswandi/shopauth/internal/pkg/instrument"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	prefixSetup    = "twofactor:setup:"
	prefixLogin    = "twofactor:login:"
	prefixAttempts = "twofactor:attempts:"
)

type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("twofactor.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Cache) SavePendingEnrollment(ctx context.Context, token string, in entity.PendingEnrollment, ttl time.Duration) (err error) {
	ctx, span := c.startSpan(ctx, "SavePendingEnrollment")
	defer func() { c.endSpan(span, err) }()

	return c.setJSON(ctx, prefixSetup+token, in, ttl)
}

func (c *Cache) GetPendingEnrollment(ctx context.Context, token string) (_ *entity.PendingEnrollment, err error) {
	ctx, span := c.startSpan(ctx, "GetPendingEnrollment")
	defer func() { c.endSpan(span, err) }()

	var out entity.PendingEnrollment
	if err := c.getJSON(ctx, prefixSetup+token, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Cache) DeletePendingEnrollment(ctx context.Context, token string) (err error) {
	ctx, span := c.startSpan(ctx, "DeletePendingEnrollment")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, prefixSetup+token).Err()
}

func (c *Cache) SaveLoginChallenge(ctx context.Context, token string, in entity.LoginChallenge, ttl time.Duration) (err error) {
	ctx, span := c.startSpan(ctx, "SaveLoginChallenge")
	defer func() { c.endSpan(span, err) }()

	return c.setJSON(ctx, prefixLogin+token, in, ttl)
}

func (c *Cache) GetLoginChallenge(ctx context.Context, token string) (_ *entity.LoginChallenge, err error) {
	ctx, span := c.startSpan(ctx, "GetLoginChallenge")
	defer func() { c.endSpan(span, err) }()

	var out entity.LoginChallenge
	if err := c.getJSON(ctx, prefixLogin+token, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Cache) DeleteLoginChallenge(ctx context.Context, token string) (err error) {
	ctx, span := c.startSpan(ctx, "DeleteLoginChallenge")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, prefixLogin+token).Err()
}

// claimAttempt counts one attempt and makes sure the counter expires. A key
// left without a TTL gets one on its next claim.
var claimAttempt = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// ClaimAttempt atomically counts one verification attempt and returns the
// attempts made in the current window, this one included. The first attempt
// opens a fixed window of the given length; later ones do not extend it.
func (c *Cache) ClaimAttempt(ctx context.Context, userID int64, window time.Duration) (_ int64, err error) {
	ctx, span := c.startSpan(ctx, "ClaimAttempt")
	defer func() { c.endSpan(span, err) }()

	return claimAttempt.Run(ctx, c.client, []string{attemptsKey(userID)}, window.Milliseconds()).Int64()
}

func (c *Cache) ClearFailedAttempts(ctx context.Context, userID int64) (err error) {
	ctx, span := c.startSpan(ctx, "ClearFailedAttempts")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, attemptsKey(userID)).Err()
}

func (c *Cache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, body, ttl).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, v any) error {
	body, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return goerror.ErrNotFound
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(body, v)
}

func attemptsKey(userID int64) string {
	return prefixAttempts + strconv.FormatInt(userID, 10)
}
