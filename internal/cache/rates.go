package cache

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"hashstake/dashboard/internal/metrics"
	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/staking"
)

// CachedStaking serves tier rates from the cache. Rates are contract
// constants, so every other call goes straight to the contract.
type CachedStaking struct {
	staking.StakingContract
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCachedStaking wraps inner. m may be nil.
func NewCachedStaking(inner staking.StakingContract, store Store, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *CachedStaking {
	return &CachedStaking{
		StakingContract: inner,
		store:           store,
		ttl:             ttl,
		metrics:         m,
		logger:          logger.Named("cache"),
	}
}

func (c *CachedStaking) rateKey(tier models.TierID) string {
	return fmt.Sprintf("rate:%s:%d", c.Address().Hex(), tier)
}

// TierRate returns the cached rate of tier, reading the contract on a miss.
// Cache errors fall back to the contract.
func (c *CachedStaking) TierRate(ctx context.Context, tier models.TierID) (*big.Int, error) {
	key := c.rateKey(tier)

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Rate cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		if rate, valid := new(big.Int).SetString(string(data), 10); valid {
			c.observe("hit")
			return rate, nil
		}
	}
	c.observe("miss")

	rate, err := c.StakingContract.TierRate(ctx, tier)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, []byte(rate.String()), c.ttl); err != nil {
		c.logger.Warn("Rate cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rate, nil
}

func (c *CachedStaking) observe(result string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(result).Inc()
	}
}
