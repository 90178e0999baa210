package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/talentdex/internal/db"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
)

// KeyPrefix namespaces period counters.
const KeyPrefix = "talentdex:quota:"

// retention keeps a closed period readable for audits after it ends.
const retention = 31 * 24 * time.Hour

// debitScript increments the counter only while it is below ARGV[1].
// Returns {granted, used}.
const debitScript = `
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if used >= limit then
  return {0, used}
end
used = redis.call('INCR', KEYS[1])
if used == 1 then
  redis.call('PEXPIREAT', KEYS[1], ARGV[2])
end
return {1, used}
`

// kvStore is the consumer interface for the Redis ledger (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
	RunScript(ctx context.Context, src string, keys, args []string) ([]int64, error)
}

// RedisLedger implements usecase/quota.Ledger with one atomic script per debit.
type RedisLedger struct {
	store kvStore
}

// NewRedisLedger creates a Redis-backed ledger.
func NewRedisLedger(s kvStore) *RedisLedger {
	return &RedisLedger{store: s}
}

// Used returns the consumption of the period. A missing key counts as zero.
func (l *RedisLedger) Used(ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period) (int, error) {
	key := counterKey(subscriptionID, t, p)
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("quota GET %s: %w", key, err)
	}
	used, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("quota GET %s parse: %w", key, err)
	}
	return used, nil
}

// TryDebit consumes one unit when the period is below limit.
func (l *RedisLedger) TryDebit(
	ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period, limit int,
) (int, bool, error) {
	key := counterKey(subscriptionID, t, p)
	expireAt := p.End().Add(retention).UnixMilli()
	res, err := l.store.RunScript(ctx, debitScript, []string{key},
		[]string{strconv.Itoa(limit), strconv.FormatInt(expireAt, 10)})
	if err != nil {
		return 0, false, fmt.Errorf("quota debit %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("quota debit %s: unexpected reply %v", key, res)
	}
	return int(res[1]), res[0] == 1, nil
}

// Reset drops the period counter.
func (l *RedisLedger) Reset(ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period) error {
	key := counterKey(subscriptionID, t, p)
	if err := l.store.Del(ctx, key); err != nil {
		return fmt.Errorf("quota DEL %s: %w", key, err)
	}
	return nil
}

func counterKey(subscriptionID string, t domquota.Type, p domquota.Period) string {
	return KeyPrefix + subscriptionID + ":" + string(t) + ":" + p.Key()
}
