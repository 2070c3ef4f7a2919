package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"loan-calculator/domain"
	"loan-calculator/repository"
)

// State of the calculator form.
type State int

const (
	// Idle: no catalog loaded yet, or the last load failed.
	Idle State = iota
	// Ready: catalog loaded, form editable.
	Ready
	// Calculating: a calculation request is in flight; the form is read-only.
	Calculating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Calculating:
		return "calculating"
	default:
		return "unknown"
	}
}

// View is a point-in-time copy of the controller state, safe to render
// without holding any lock.
type View struct {
	State         State
	Products      []domain.LoanProduct
	SelectedKey   string
	RatePct       float64
	DefaultMonths int
	Months        string
	Principal     string
	StartDate     string
	Result        *domain.CalculationResult
	Error         string
	ErrorKind     domain.ErrorKind
}

func (v View) Loading() bool {
	return v.State == Calculating
}

func (v View) CanCalculate() bool {
	return v.State == Ready && v.SelectedKey != ""
}

// Controller drives product selection, parameter edits, calculation and the
// display state that results from them. All methods are safe for concurrent
// use; the lock is never held across a gateway call.
type Controller struct {
	gateway repository.LoanGateway
	log     *zap.Logger
	now     func() time.Time

	mu             sync.Mutex
	state          State
	products       []domain.LoanProduct
	selectedKey    string
	ratePct        float64
	defaultMonths  int
	months         string
	principal      string
	startDate      string
	result         *domain.CalculationResult
	errMsg         string
	errKind        domain.ErrorKind
	catalogLoading bool

	// epoch changes on Reset; calcToken changes on every accepted Calculate.
	// Responses carrying stale values are dropped.
	epoch     uint64
	calcToken uint64
}

type Option func(*Controller)

// WithClock overrides the clock used for the default start date.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(gateway repository.LoanGateway, log *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		gateway: gateway,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startDate = c.today()
	return c
}

func (c *Controller) today() string {
	return c.now().Format(domain.DateLayout)
}

// LoadProducts fetches the catalog and, when it is not empty, selects the
// first product. On failure the controller stays Idle with the error shown;
// nothing is retried.
func (c *Controller) LoadProducts(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.catalogLoading:
		c.mu.Unlock()
		return ErrCatalogLoading
	case c.state == Calculating:
		c.mu.Unlock()
		return ErrCalculationInFlight
	case c.state == Ready:
		c.mu.Unlock()
		return ErrCatalogLoaded
	}
	c.catalogLoading = true
	c.clearError()
	epoch := c.epoch
	c.mu.Unlock()

	products, err := c.gateway.ListProducts(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return ErrResultDiscarded
	}
	c.catalogLoading = false

	if err != nil {
		c.products = nil
		c.setError(err)
		c.log.Debug("catalog load failed", zap.Error(err))
		return err
	}

	c.products = append([]domain.LoanProduct(nil), products...)
	c.state = Ready
	if len(c.products) > 0 {
		c.applyProduct(c.products[0])
	}
	c.log.Debug("catalog loaded", zap.Int("count", len(c.products)), zap.String("selected", c.selectedKey))
	return nil
}

// SelectProduct makes key the active product and re-derives the rate,
// default term and term field from it. The principal is left alone.
func (c *Controller) SelectProduct(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Calculating:
		return ErrCalculationInFlight
	case Idle:
		return ErrNoProduct
	}

	p, ok := c.find(key)
	if !ok {
		return ErrUnknownProduct
	}
	c.applyProduct(p)
	c.log.Debug("product selected", zap.String("key", key))
	return nil
}

func (c *Controller) SetPrincipal(value string) error {
	return c.edit(func() { c.principal = strings.TrimSpace(value) })
}

func (c *Controller) SetMonths(value string) error {
	return c.edit(func() { c.months = strings.TrimSpace(value) })
}

func (c *Controller) SetStartDate(value string) error {
	return c.edit(func() { c.startDate = strings.TrimSpace(value) })
}

func (c *Controller) edit(apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Calculating {
		return ErrCalculationInFlight
	}
	apply()
	return nil
}

// Calculate validates the form and, if it passes, issues exactly one
// calculation request. While it is outstanding further calls return
// ErrCalculationInFlight. On failure the previous result stays visible.
func (c *Controller) Calculate(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Calculating {
		c.mu.Unlock()
		return ErrCalculationInFlight
	}

	req, err := c.buildRequest()
	if err != nil {
		c.setError(err)
		c.mu.Unlock()
		return err
	}

	c.clearError()
	c.state = Calculating
	c.calcToken++
	token, epoch := c.calcToken, c.epoch
	c.mu.Unlock()

	c.log.Debug("calculation started",
		zap.String("product_key", req.ProductKey),
		zap.String("principal", req.Principal.String()),
		zap.Int("term_months", req.TermMonths))

	result, err := c.gateway.Calculate(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.calcToken || epoch != c.epoch {
		c.log.Debug("stale calculation dropped", zap.Uint64("token", token))
		return ErrResultDiscarded
	}

	c.state = Ready
	if err != nil {
		c.setError(err)
		return err
	}
	c.result = &result
	c.log.Debug("calculation finished", zap.Int("rows", len(result.Schedule)))
	return nil
}

// Reset throws away every piece of local state, including any in-flight
// request, and loads the catalog again from scratch.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.epoch++
	c.calcToken++
	c.state = Idle
	c.products = nil
	c.selectedKey = ""
	c.ratePct = 0
	c.defaultMonths = 0
	c.months = ""
	c.principal = ""
	c.startDate = c.today()
	c.result = nil
	c.clearError()
	c.catalogLoading = false
	c.mu.Unlock()

	c.log.Debug("calculator reset")
	return c.LoadProducts(ctx)
}

func (c *Controller) CanCalculate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Ready && c.selectedKey != ""
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:         c.state,
		Products:      append([]domain.LoanProduct(nil), c.products...),
		SelectedKey:   c.selectedKey,
		RatePct:       c.ratePct,
		DefaultMonths: c.defaultMonths,
		Months:        c.months,
		Principal:     c.principal,
		StartDate:     c.startDate,
		Error:         c.errMsg,
		ErrorKind:     c.errKind,
	}
	if c.result != nil {
		r := *c.result
		r.Schedule = append([]domain.ScheduleRow(nil), c.result.Schedule...)
		v.Result = &r
	}
	return v
}

// buildRequest coerces the form fields. Caller holds c.mu.
func (c *Controller) buildRequest() (domain.CalculationRequest, error) {
	if c.state != Ready || c.selectedKey == "" {
		return domain.CalculationRequest{}, ErrNoProduct
	}

	principal, err := decimal.NewFromString(c.principal)
	if err != nil || !principal.IsPositive() {
		return domain.CalculationRequest{}, ErrInvalidAmount
	}

	months, err := strconv.Atoi(c.months)
	if err != nil || months <= 0 {
		return domain.CalculationRequest{}, ErrInvalidMonths
	}

	start, err := time.Parse(domain.DateLayout, c.startDate)
	if err != nil {
		return domain.CalculationRequest{}, ErrInvalidStartDate
	}

	return domain.CalculationRequest{
		ProductKey: c.selectedKey,
		Principal:  principal,
		StartDate:  start,
		TermMonths: months,
	}, nil
}

// applyProduct syncs the derived fields. Caller holds c.mu.
func (c *Controller) applyProduct(p domain.LoanProduct) {
	c.selectedKey = p.ProductKey
	c.ratePct = p.RatePct()
	c.defaultMonths = p.DefaultTermMonths
	c.months = strconv.Itoa(p.DefaultTermMonths)
}

func (c *Controller) find(key string) (domain.LoanProduct, bool) {
	for _, p := range c.products {
		if p.ProductKey == key {
			return p, true
		}
	}
	return domain.LoanProduct{}, false
}

func (c *Controller) setError(err error) {
	c.errMsg = err.Error()
	c.errKind = KindOf(err)
}

func (c *Controller) clearError() {
	c.errMsg = ""
	c.errKind = 0
}
