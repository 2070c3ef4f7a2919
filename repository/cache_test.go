package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-calculator/domain"
	"loan-calculator/logger"
)

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "forever", "x", 0))

	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	_, ok = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestRedisCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	defer c.Close()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	s.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

type countingGateway struct {
	listCalls atomic.Int32
	calcCalls atomic.Int32
	products  []domain.LoanProduct
	err       error
	block     chan struct{}
	// set when ListProducts saw a cancelled context after unblocking
	sawCancel atomic.Bool
}

func (g *countingGateway) ListProducts(ctx context.Context) ([]domain.LoanProduct, error) {
	g.listCalls.Add(1)
	if g.block != nil {
		<-g.block
	}
	if ctx.Err() != nil {
		g.sawCancel.Store(true)
		return nil, ctx.Err()
	}
	return g.products, g.err
}

func (g *countingGateway) Calculate(context.Context, domain.CalculationRequest) (domain.CalculationResult, error) {
	g.calcCalls.Add(1)
	return domain.CalculationResult{}, nil
}

func catalog() []domain.LoanProduct {
	return []domain.LoanProduct{{
		ProductKey:          "A",
		LoanName:            "Asset Loan",
		MonthlyInterestRate: decimal.RequireFromString("0.01"),
		DefaultTermMonths:   12,
	}}
}

func TestCachedLoanGateway_ServesCatalogFromCache(t *testing.T) {
	ctx := context.Background()
	next := &countingGateway{products: catalog()}
	gw := NewCachedLoanGateway(next, NewMemoryCache(), time.Minute, logger.Nop())

	first, err := gw.ListProducts(ctx)
	require.NoError(t, err)
	second, err := gw.ListProducts(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, next.listCalls.Load())
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ProductKey, second[0].ProductKey)
	assert.True(t, second[0].MonthlyInterestRate.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, 12, second[0].DefaultTermMonths)
}

func TestCachedLoanGateway_RedisBacked(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	next := &countingGateway{products: catalog()}
	cache := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	gw := NewCachedLoanGateway(next, cache, time.Minute, logger.Nop())

	_, err = gw.ListProducts(ctx)
	require.NoError(t, err)
	assert.True(t, s.Exists(catalogCacheKey))

	_, err = gw.ListProducts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, next.listCalls.Load())

	s.FastForward(2 * time.Minute)
	_, err = gw.ListProducts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.listCalls.Load())
}

func TestCachedLoanGateway_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	next := &countingGateway{err: errors.New("boom")}
	gw := NewCachedLoanGateway(next, NewMemoryCache(), time.Minute, logger.Nop())

	_, err := gw.ListProducts(ctx)
	assert.Error(t, err)
	_, err = gw.ListProducts(ctx)
	assert.Error(t, err)
	assert.EqualValues(t, 2, next.listCalls.Load())
}

func TestCachedLoanGateway_DisabledAndCalculatePassThrough(t *testing.T) {
	ctx := context.Background()
	next := &countingGateway{products: catalog()}
	gw := NewCachedLoanGateway(next, NewMemoryCache(), 0, logger.Nop())

	_, _ = gw.ListProducts(ctx)
	_, _ = gw.ListProducts(ctx)
	assert.EqualValues(t, 2, next.listCalls.Load())

	_, _ = gw.Calculate(ctx, domain.CalculationRequest{})
	_, _ = gw.Calculate(ctx, domain.CalculationRequest{})
	assert.EqualValues(t, 2, next.calcCalls.Load())
}

func TestCachedLoanGateway_CollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	next := &countingGateway{products: catalog(), block: make(chan struct{})}
	gw := NewCachedLoanGateway(next, NewMemoryCache(), time.Minute, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			products, err := gw.ListProducts(ctx)
			assert.NoError(t, err)
			assert.Len(t, products, 1)
		}()
	}

	require.Eventually(t, func() bool { return next.listCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(next.block)
	wg.Wait()

	assert.EqualValues(t, 1, next.listCalls.Load())
}

func TestCachedLoanGateway_CallerCancelDoesNotFailOthers(t *testing.T) {
	next := &countingGateway{products: catalog(), block: make(chan struct{})}
	gw := NewCachedLoanGateway(next, NewMemoryCache(), time.Minute, logger.Nop())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := gw.ListProducts(firstCtx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return next.listCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		products []domain.LoanProduct
		err      error
	}
	second := make(chan result, 1)
	go func() {
		products, err := gw.ListProducts(context.Background())
		second <- result{products, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(next.block)
	got := <-second
	require.NoError(t, got.err)
	assert.Len(t, got.products, 1)
	assert.EqualValues(t, 1, next.listCalls.Load())
	assert.False(t, next.sawCancel.Load())
}
