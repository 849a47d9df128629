package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"vipclub/internal/repositories/interfaces"
	"vipclub/pkg/cache"

	goredis "github.com/redis/go-redis/v9"
)

const (
	balanceKeyPrefix = "account_balance"
	pointsKeyPrefix  = "account_points"
	spendsKeyPrefix  = "account_point_spends"
)

// spendScript checks and decrements the balance in one step so concurrent
// spends across processes cannot overdraw it.
var spendScript = goredis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if current < amount then
	return 0
end
redis.call('DECRBY', KEYS[1], amount)
redis.call('RPUSH', KEYS[2], ARGV[2])
return 1
`)

type accountRepository struct {
	cache *cache.RedisCache
}

type AccountRepository interface {
	interfaces.AccountRepository
	interfaces.PointsLedger
}

func NewAccountRepository(cache *cache.RedisCache) AccountRepository {
	return &accountRepository{cache: cache}
}

func BalanceKey(userID string) string {
	return fmt.Sprintf("%s:%s", balanceKeyPrefix, userID)
}

func PointsKey(userID string) string {
	return fmt.Sprintf("%s:%s", pointsKeyPrefix, userID)
}

func SpendsKey(userID string) string {
	return fmt.Sprintf("%s:%s", spendsKeyPrefix, userID)
}

func (r *accountRepository) GetBalance(ctx context.Context, userID string) (float64, error) {
	balance, err := r.cache.GetFloat(ctx, BalanceKey(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (r *accountRepository) GetPoints(ctx context.Context, userID string) (int64, error) {
	points, err := r.cache.GetFloat(ctx, PointsKey(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to get points: %w", err)
	}
	return int64(points), nil
}

func (r *accountRepository) SpendPoints(ctx context.Context, userID string, amount int64, metadata interfaces.SpendMetadata) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("invalid spend amount %d", amount)
	}

	entry, err := json.Marshal(struct {
		Amount   int64  `json:"amount"`
		CouponID string `json:"coupon_id"`
	}{Amount: amount, CouponID: metadata.CouponID})
	if err != nil {
		return false, err
	}

	result, err := r.cache.RunScript(ctx, spendScript, []string{PointsKey(userID), SpendsKey(userID)}, amount, string(entry))
	if err != nil {
		return false, fmt.Errorf("failed to spend points: %w", err)
	}

	spent, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected spend script result %v", result)
	}
	return spent == 1, nil
}
