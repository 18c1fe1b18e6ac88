package budget

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// Counters are lazily initialized to the tier's daily quota with a 24h TTL,
// decremented under a Lua script so the remaining value can never go
// negative, and refunded through a marker key that is deleted on first
// refund. Everything runs server-side in redis; concurrent documents for
// the same tenant observe a consistent counter.
const reserveScript = `
local counter = KEYS[1]
local marker = KEYS[2]
local cost = tonumber(ARGV[1])
local quota = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
if redis.call("EXISTS", counter) == 0 then
  redis.call("SET", counter, quota, "EX", ttl)
end
local remaining = tonumber(redis.call("GET", counter))
if remaining < cost then
  return 0
end
redis.call("DECRBY", counter, cost)
redis.call("SET", marker, counter .. "|" .. cost, "EX", ttl * 2)
return 1
`

const refundScript = `
local marker = KEYS[1]
local v = redis.call("GET", marker)
if not v then
  return 0
end
redis.call("DEL", marker)
local sep = string.find(v, "|")
local counter = string.sub(v, 1, sep - 1)
local cost = tonumber(string.sub(v, sep + 1))
redis.call("INCRBY", counter, cost)
return 1
`

type redisStore struct {
	log    *logger.Logger
	rdb    *goredis.Client
	quotas map[string]int64
	ttl    time.Duration
}

func NewRedisStore(log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisStore{
		log: log.With("client", "RedisBudgetStore"),
		rdb: rdb,
		quotas: map[string]int64{
			types.TierSmall:  int64(envutil.Int("BUDGET_DAILY_QUOTA_SMALL", 500)),
			types.TierBig:    int64(envutil.Int("BUDGET_DAILY_QUOTA_BIG", 100)),
			types.TierVision: int64(envutil.Int("BUDGET_DAILY_QUOTA_VISION", 25)),
		},
		ttl: envutil.Duration("BUDGET_COUNTER_TTL", 24*time.Hour),
	}, nil
}

func counterKey(tenantID uuid.UUID, tier string) string {
	return "budget:" + tenantID.String() + ":" + tier
}

func markerKey(reservationID uuid.UUID) string {
	return "budget:resv:" + reservationID.String()
}

func (s *redisStore) Reserve(ctx context.Context, tenantID uuid.UUID, tier string, reservationID uuid.UUID) (bool, error) {
	if s == nil || s.rdb == nil {
		return false, ErrStoreUnavailable
	}
	if tenantID == uuid.Nil || reservationID == uuid.Nil {
		return false, fmt.Errorf("tenant and reservation ids required")
	}
	if tier == types.TierNoLLM {
		return true, nil
	}
	quota, ok := s.quotas[tier]
	if !ok {
		return false, fmt.Errorf("unknown tier %q", tier)
	}
	ttlSec := int64(s.ttl / time.Second)
	res, err := s.rdb.Eval(ctx, reserveScript,
		[]string{counterKey(tenantID, tier), markerKey(reservationID)},
		1, quota, ttlSec,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: reserve: %v", ErrStoreUnavailable, err)
	}
	return res == 1, nil
}

func (s *redisStore) Refund(ctx context.Context, reservationID uuid.UUID) error {
	if s == nil || s.rdb == nil {
		return ErrStoreUnavailable
	}
	if reservationID == uuid.Nil {
		return nil
	}
	_, err := s.rdb.Eval(ctx, refundScript, []string{markerKey(reservationID)}).Int64()
	if err != nil {
		return fmt.Errorf("%w: refund: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *redisStore) Remaining(ctx context.Context, tenantID uuid.UUID, tier string) (int64, error) {
	if s == nil || s.rdb == nil {
		return 0, ErrStoreUnavailable
	}
	v, err := s.rdb.Get(ctx, counterKey(tenantID, tier)).Int64()
	if err == goredis.Nil {
		if q, ok := s.quotas[tier]; ok {
			return q, nil
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: remaining: %v", ErrStoreUnavailable, err)
	}
	return v, nil
}
