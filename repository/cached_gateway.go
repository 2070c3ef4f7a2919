package repository

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"loan-calculator/domain"
)

// CachedLoanGateway serves the product catalog from a cache. Calculations
// always go to the wrapped gateway.
type CachedLoanGateway struct {
	next  LoanGateway
	cache CacheRepository
	ttl   time.Duration
	group singleflight.Group
	log   *zap.Logger
}

func NewCachedLoanGateway(next LoanGateway, cache CacheRepository, ttl time.Duration, log *zap.Logger) *CachedLoanGateway {
	return &CachedLoanGateway{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func (c *CachedLoanGateway) ListProducts(ctx context.Context) ([]domain.LoanProduct, error) {
	if c.ttl <= 0 {
		return c.next.ListProducts(ctx)
	}

	if raw, ok := c.cache.Get(ctx, catalogCacheKey); ok {
		var products []domain.LoanProduct
		err := json.Unmarshal([]byte(raw), &products)
		if err == nil {
			c.log.Debug("product catalog served from cache", zap.Int("count", len(products)))
			return products, nil
		}
		c.log.Warn("discarding unreadable cached catalog", zap.Error(err))
	}

	// The shared fetch outlives any one caller; the HTTP client timeout
	// bounds it. Each caller still returns on its own cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(catalogCacheKey, func() (any, error) {
		products, err := c.next.ListProducts(fetchCtx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(products)
		if err != nil {
			c.log.Warn("failed to encode catalog for cache", zap.Error(err))
			return products, nil
		}
		if err := c.cache.Set(fetchCtx, catalogCacheKey, string(payload), c.ttl); err != nil {
			c.log.Warn("failed to cache product catalog", zap.Error(err))
		}
		return products, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	shared := res.Val.([]domain.LoanProduct)
	products := make([]domain.LoanProduct, len(shared))
	copy(products, shared)
	return products, nil
}

func (c *CachedLoanGateway) Calculate(
	ctx context.Context,
	req domain.CalculationRequest,
) (domain.CalculationResult, error) {
	return c.next.Calculate(ctx, req)
}
