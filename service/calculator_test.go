package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-calculator/domain"
	"loan-calculator/logger"
	"loan-calculator/repository"
)

type MockLoanGateway struct {
	mu        sync.Mutex
	Products  []domain.LoanProduct
	ListErr   error
	Result    domain.CalculationResult
	CalcErr   error
	Requests  []domain.CalculationRequest
	ListCalls int

	// When set, Calculate signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
	// Same for ListProducts.
	listEntered chan struct{}
	listRelease chan struct{}
}

func (m *MockLoanGateway) ListProducts(context.Context) ([]domain.LoanProduct, error) {
	m.mu.Lock()
	m.ListCalls++
	entered, release := m.listEntered, m.listRelease
	products, err := m.Products, m.ListErr
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	return products, err
}

func (m *MockLoanGateway) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls
}

func (m *MockLoanGateway) Calculate(ctx context.Context, req domain.CalculationRequest) (domain.CalculationResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	entered, release := m.entered, m.release
	result, err := m.Result, m.CalcErr
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	return result, err
}

func (m *MockLoanGateway) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC) }

func product(key string, rate string, months int) domain.LoanProduct {
	return domain.LoanProduct{
		ProductKey:          key,
		LoanName:            key + " Loan",
		MonthlyInterestRate: decimal.RequireFromString(rate),
		DefaultTermMonths:   months,
	}
}

func fixtureResult(n int) domain.CalculationResult {
	principal := decimal.NewFromInt(50000)
	share := principal.Div(decimal.NewFromInt(int64(n)))
	balance := principal
	rows := make([]domain.ScheduleRow, 0, n)
	interest := decimal.Zero
	for i := 1; i <= n; i++ {
		in := balance.Mul(decimal.RequireFromString("0.01")).Round(2)
		balance = balance.Sub(share)
		interest = interest.Add(in)
		rows = append(rows, domain.ScheduleRow{
			Period:    i,
			Date:      fmt.Sprintf("row-%d", i),
			Principal: share,
			Interest:  in,
			Total:     share.Add(in),
			Balance:   balance,
		})
	}
	return domain.CalculationResult{
		Summary: domain.Summary{
			Principal:     principal,
			TotalInterest: interest,
			TotalPayable:  principal.Add(interest),
		},
		Schedule: rows,
	}
}

func newController(t *testing.T, gw *MockLoanGateway) *Controller {
	t.Helper()
	return NewController(gw, logger.Nop(), WithClock(fixedNow))
}

func loaded(t *testing.T, gw *MockLoanGateway) *Controller {
	t.Helper()
	c := newController(t, gw)
	require.NoError(t, c.LoadProducts(context.Background()))
	return c
}

func TestInitialState(t *testing.T) {
	c := newController(t, &MockLoanGateway{})
	v := c.Snapshot()

	assert.Equal(t, Idle, v.State)
	assert.Equal(t, "2026-10-18", v.StartDate)
	assert.Empty(t, v.SelectedKey)
	assert.Nil(t, v.Result)
	assert.False(t, c.CanCalculate())
}

// Scenario A
func TestLoadProducts_SelectsFirstProduct(t *testing.T) {
	gw := &MockLoanGateway{Products: []domain.LoanProduct{product("A", "0.01", 12)}}
	c := loaded(t, gw)
	v := c.Snapshot()

	assert.Equal(t, Ready, v.State)
	assert.Equal(t, "A", v.SelectedKey)
	assert.Equal(t, 1.0, v.RatePct)
	assert.Equal(t, 12, v.DefaultMonths)
	assert.Equal(t, "12", v.Months)
	assert.True(t, c.CanCalculate())
}

func TestLoadProducts_EmptyCatalog(t *testing.T) {
	c := loaded(t, &MockLoanGateway{})
	v := c.Snapshot()

	assert.Equal(t, Ready, v.State)
	assert.Empty(t, v.Products)
	assert.Empty(t, v.SelectedKey)
	assert.Empty(t, v.Error)
	assert.False(t, c.CanCalculate())
}

// Scenario D
func TestLoadProducts_Failure(t *testing.T) {
	gw := &MockLoanGateway{ListErr: &repository.APIError{Kind: domain.KindNetwork, Message: "dial tcp: connection refused"}}
	c := newController(t, gw)

	err := c.LoadProducts(context.Background())
	require.Error(t, err)

	v := c.Snapshot()
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, "dial tcp: connection refused", v.Error)
	assert.Equal(t, domain.KindNetwork, v.ErrorKind)
	assert.Empty(t, v.SelectedKey)

	require.NoError(t, c.SetPrincipal("1000"))
	assert.ErrorIs(t, c.Calculate(context.Background()), ErrNoProduct)
	assert.Zero(t, gw.requestCount())
	assert.Equal(t, 1, gw.ListCalls, "no automatic retry")
}

func TestLoadProducts_ManualRetryAfterFailure(t *testing.T) {
	gw := &MockLoanGateway{ListErr: errors.New("boom")}
	c := newController(t, gw)
	require.Error(t, c.LoadProducts(context.Background()))

	gw.ListErr = nil
	gw.Products = []domain.LoanProduct{product("A", "0.01", 12)}
	require.NoError(t, c.LoadProducts(context.Background()))
	assert.Empty(t, c.Snapshot().Error)

	assert.ErrorIs(t, c.LoadProducts(context.Background()), ErrCatalogLoaded)
}

func TestLoadProducts_SecondCallWhileLoadingIsRejected(t *testing.T) {
	gw := &MockLoanGateway{
		Products:    []domain.LoanProduct{product("A", "0.01", 12)},
		listEntered: make(chan struct{}),
		listRelease: make(chan struct{}),
	}
	c := newController(t, gw)

	done := make(chan error, 1)
	go func() { done <- c.LoadProducts(context.Background()) }()
	<-gw.listEntered

	assert.ErrorIs(t, c.LoadProducts(context.Background()), ErrCatalogLoading)
	assert.Equal(t, Idle, c.Snapshot().State)
	assert.Equal(t, 1, gw.listCount())

	close(gw.listRelease)
	require.NoError(t, <-done)
	v := c.Snapshot()
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, "A", v.SelectedKey)
	assert.Equal(t, 1, gw.listCount())
	assert.ErrorIs(t, c.LoadProducts(context.Background()), ErrCatalogLoaded)
}

func TestSelectProduct_RederivesWithoutClobberingPrincipal(t *testing.T) {
	gw := &MockLoanGateway{Products: []domain.LoanProduct{
		product("A", "0.01", 12),
		product("B", "0.015", 24),
	}}
	c := loaded(t, gw)

	require.NoError(t, c.SetPrincipal("75000"))
	require.NoError(t, c.SetMonths("6"))
	require.NoError(t, c.SelectProduct("B"))

	v := c.Snapshot()
	assert.Equal(t, "B", v.SelectedKey)
	assert.Equal(t, 1.5, v.RatePct)
	assert.Equal(t, 24, v.DefaultMonths)
	assert.Equal(t, "24", v.Months, "term resets to the product default")
	assert.Equal(t, "75000", v.Principal)
}

func TestSelectProduct_PropertyOverCatalog(t *testing.T) {
	products := []domain.LoanProduct{
		product("A", "0.01", 12),
		product("B", "0.015", 24),
		product("C", "0.0125", 36),
		product("D", "0", 1),
	}
	c := loaded(t, &MockLoanGateway{Products: products})

	for _, p := range products {
		require.NoError(t, c.SetMonths("99"))
		require.NoError(t, c.SelectProduct(p.ProductKey))
		v := c.Snapshot()
		assert.Equal(t, p.MonthlyInterestRate.Mul(decimal.NewFromInt(100)).InexactFloat64(), v.RatePct, p.ProductKey)
		assert.Equal(t, fmt.Sprint(p.DefaultTermMonths), v.Months, p.ProductKey)
	}
}

func TestSelectProduct_Invalid(t *testing.T) {
	c := newController(t, &MockLoanGateway{Products: []domain.LoanProduct{product("A", "0.01", 12)}})
	assert.ErrorIs(t, c.SelectProduct("A"), ErrNoProduct, "nothing loaded yet")

	require.NoError(t, c.LoadProducts(context.Background()))
	assert.ErrorIs(t, c.SelectProduct("Z"), ErrUnknownProduct)
	assert.Equal(t, "A", c.Snapshot().SelectedKey)
}

// Scenario B
func TestCalculate_NonPositivePrincipalSendsNothing(t *testing.T) {
	for _, principal := range []string{"0", "-5", "", "abc"} {
		t.Run(principal, func(t *testing.T) {
			gw := &MockLoanGateway{Products: []domain.LoanProduct{product("A", "0.01", 12)}}
			c := loaded(t, gw)
			require.NoError(t, c.SetPrincipal(principal))

			err := c.Calculate(context.Background())
			assert.ErrorIs(t, err, ErrInvalidAmount)
			assert.Zero(t, gw.requestCount())

			v := c.Snapshot()
			assert.Equal(t, "Enter a valid amount.", v.Error)
			assert.Equal(t, domain.KindValidation, v.ErrorKind)
			assert.Equal(t, Ready, v.State)
		})
	}
}

func TestCalculate_OtherValidation(t *testing.T) {
	gw := &MockLoanGateway{Products: []domain.LoanProduct{product("A", "0.01", 12)}}
	c := loaded(t, gw)
	require.NoError(t, c.SetPrincipal("1000"))

	require.NoError(t, c.SetMonths("0"))
	assert.ErrorIs(t, c.Calculate(context.Background()), ErrInvalidMonths)
	require.NoError(t, c.SetMonths("1.5"))
	assert.ErrorIs(t, c.Calculate(context.Background()), ErrInvalidMonths)

	require.NoError(t, c.SetMonths("12"))
	require.NoError(t, c.SetStartDate("18/10/2026"))
	assert.ErrorIs(t, c.Calculate(context.Background()), ErrInvalidStartDate)

	assert.Zero(t, gw.requestCount())
}

// Scenario C
func TestCalculate_Success(t *testing.T) {
	gw := &MockLoanGateway{
		Products: []domain.LoanProduct{product("A", "0.01", 12)},
		Result:   fixtureResult(24),
	}
	c := loaded(t, gw)
	require.NoError(t, c.SetPrincipal("50000"))
	require.NoError(t, c.SetMonths("24"))

	require.NoError(t, c.Calculate(context.Background()))
	require.Equal(t, 1, gw.requestCount())

	req := gw.Requests[0]
	assert.Equal(t, "A", req.ProductKey)
	assert.True(t, req.Principal.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, 24, req.TermMonths)
	assert.Equal(t, "2026-10-18", req.StartDate.Format(domain.DateLayout))

	v := c.Snapshot()
	assert.Equal(t, Ready, v.State)
	require.NotNil(t, v.Result)
	require.Len(t, v.Result.Schedule, 24)
	for i, row := range v.Result.Schedule {
		assert.Equal(t, i+1, row.Period)
	}
	assert.True(t, v.Result.Summary.Consistent())
	assert.Empty(t, v.Error)
}

func TestCalculate_ReplacesResultWholesale(t *testing.T) {
	gw := &MockLoanGateway{
		Products: []domain.LoanProduct{product("A", "0.01", 12)},
		Result:   fixtureResult(24),
	}
	c := loaded(t, gw)
	require.NoError(t, c.SetPrincipal("50000"))
	require.NoError(t, c.Calculate(context.Background()))

	gw.Result = fixtureResult(6)
	require.NoError(t, c.Calculate(context.Background()))
	assert.Len(t, c.Snapshot().Result.Schedule, 6)
}

// Scenario E
func TestCalculate_ServerErrorKeepsPreviousResult(t *testing.T) {
	gw := &MockLoanGateway{
		Products: []domain.LoanProduct{product("A", "0.01", 12)},
		Result:   fixtureResult(12),
	}
	c := loaded(t, gw)
	require.NoError(t, c.SetPrincipal("50000"))
	require.NoError(t, c.Calculate(context.Background()))

	gw.CalcErr = &repository.APIError{
		Kind:       domain.KindNetwork,
		StatusCode: http.StatusInternalServerError,
		Message:    "500 Internal Server Error: loan service request failed",
	}
	err := c.Calculate(context.Background())
	require.Error(t, err)

	v := c.Snapshot()
	assert.False(t, v.Loading())
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, "500 Internal Server Error: loan service request failed", v.Error)
	require.NotNil(t, v.Result)
	assert.Len(t, v.Result.Schedule, 12)
}

func TestCalculate_SecondCallWhileInFlightIsRejected(t *testing.T) {
	gw := &MockLoanGateway{
		Products: []domain.LoanProduct{product("A", "0.01", 12)},
		Result:   fixtureResult(12),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	c := loaded(t, gw)
	require.NoError(t, c.SetPrincipal("1000"))

	done := make(chan error, 1)
	go func() { done <- c.Calculate(context.Background()) }()
	<-gw.entered

	v := c.Snapshot()
	assert.True(t, v.Loading())
	assert.False(t, v.CanCalculate())
	assert.ErrorIs(t, c.Calculate(context.Background()), ErrCalculationInFlight)
	assert.ErrorIs(t, c.SetPrincipal("2000"), ErrCalculationInFlight)
	assert.ErrorIs(t, c.SelectProduct("A"), ErrCalculationInFlight)

	close(gw.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.requestCount())
	assert.Equal(t, "1000", c.Snapshot().Principal)
}

func TestReset_DiscardsInFlightResultAndReloads(t *testing.T) {
	gw := &MockLoanGateway{
		Products: []domain.LoanProduct{product("A", "0.01", 12), product("B", "0.02", 6)},
		Result:   fixtureResult(12),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	c := loaded(t, gw)
	require.NoError(t, c.SelectProduct("B"))
	require.NoError(t, c.SetPrincipal("1000"))

	done := make(chan error, 1)
	go func() { done <- c.Calculate(context.Background()) }()
	<-gw.entered

	require.NoError(t, c.Reset(context.Background()))
	close(gw.release)
	assert.ErrorIs(t, <-done, ErrResultDiscarded)

	v := c.Snapshot()
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, "A", v.SelectedKey)
	assert.Empty(t, v.Principal)
	assert.Equal(t, "12", v.Months)
	assert.Nil(t, v.Result)
	assert.Equal(t, 2, gw.ListCalls)
}

func TestSnapshotIsACopy(t *testing.T) {
	gw := &MockLoanGateway{
		Products: []domain.LoanProduct{product("A", "0.01", 12)},
		Result:   fixtureResult(3),
	}
	c := loaded(t, gw)
	require.NoError(t, c.SetPrincipal("1000"))
	require.NoError(t, c.Calculate(context.Background()))

	v := c.Snapshot()
	v.Result.Schedule[0].Period = 99
	v.Products[0].ProductKey = "mutated"

	again := c.Snapshot()
	assert.Equal(t, 1, again.Result.Schedule[0].Period)
	assert.Equal(t, "A", again.Products[0].ProductKey)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, domain.KindValidation, KindOf(ErrInvalidAmount))
	assert.Equal(t, domain.KindDecode, KindOf(fmt.Errorf("wrapped: %w", &repository.APIError{Kind: domain.KindDecode})))
	assert.Equal(t, domain.KindNetwork, KindOf(errors.New("other")))
}
