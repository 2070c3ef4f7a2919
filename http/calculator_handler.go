package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"loan-calculator/domain"
	"loan-calculator/render"
	"loan-calculator/repository"
	"loan-calculator/service"
)

const maxRequestBytes = 1 << 20

//go:embed templates/calculator.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/calculator.html"))

// CalculatorHandler serves the calculator page and its JSON and CSV
// endpoints. It keeps no form state between requests: every request runs
// one controller lifecycle against the shared gateway.
type CalculatorHandler struct {
	gateway repository.LoanGateway
	log     *zap.Logger
	opts    []service.Option
}

func NewCalculatorHandler(gateway repository.LoanGateway, log *zap.Logger, opts ...service.Option) *CalculatorHandler {
	return &CalculatorHandler{gateway: gateway, log: log, opts: opts}
}

// formInput is what a page load, CSV download or API call asks for.
// Empty fields keep the controller's defaults.
type formInput struct {
	Product   string
	Principal string
	Months    string
	StartDate string
	Submit    bool
}

func formFromQuery(q url.Values) formInput {
	return formInput{
		Product:   q.Get("product"),
		Principal: q.Get("principal"),
		Months:    q.Get("months"),
		StartDate: q.Get("start_date"),
		Submit:    q.Has("principal"),
	}
}

type calculateRequest struct {
	ProductKey string      `json:"product_key"`
	Principal  json.Number `json:"principal"`
	Months     json.Number `json:"months"`
	StartDate  string      `json:"start_date"`
}

type productItem struct {
	ProductKey        string  `json:"product_key"`
	LoanName          string  `json:"loan_name"`
	RatePct           float64 `json:"rate_pct"`
	RateLabel         string  `json:"rate_label"`
	DefaultTermMonths int     `json:"default_term_months"`
}

type chipItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type calculateResponse struct {
	ProductKey string               `json:"product_key"`
	Summary    domain.Summary       `json:"summary"`
	Schedule   []domain.ScheduleRow `json:"schedule"`
	Chips      []chipItem           `json:"chips"`
	Headers    []string             `json:"headers"`
	Rows       [][]string           `json:"rows"`
}

// run loads the catalog, applies in and calculates when in.Submit is set.
// The returned error is the first one hit; the controller is always usable
// for rendering.
func (h *CalculatorHandler) run(ctx context.Context, in formInput) (*service.Controller, error) {
	c := service.NewController(h.gateway, h.log, h.opts...)
	if err := c.LoadProducts(ctx); err != nil {
		return c, err
	}
	if in.Product != "" {
		if err := c.SelectProduct(in.Product); err != nil {
			return c, err
		}
	}
	// Edits only fail while calculating, which cannot happen here.
	if in.Months != "" {
		_ = c.SetMonths(in.Months)
	}
	if in.StartDate != "" {
		_ = c.SetStartDate(in.StartDate)
	}
	_ = c.SetPrincipal(in.Principal)

	if !in.Submit {
		return c, nil
	}
	return c, c.Calculate(ctx)
}

// Page renders the calculator. A query carrying principal counts as a
// submitted form.
func (h *CalculatorHandler) Page(w http.ResponseWriter, r *http.Request) {
	in := formFromQuery(r.URL.Query())
	c, err := h.run(r.Context(), in)

	page := render.BuildPage(c.Snapshot())
	if err != nil && page.Error == "" {
		page.Error = err.Error()
	}

	data := struct {
		render.Page
		Title    string
		Subtitle string
		Note     string
		Headers  []string
		CSVHref  template.URL
	}{
		Page:     page,
		Title:    render.Title,
		Subtitle: render.Subtitle,
		Note:     render.Note,
		Headers:  render.ScheduleHeaders,
		CSVHref:  csvHref(page),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.log.Error("render calculator page", zap.Error(err))
	}
}

func (h *CalculatorHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.gateway.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]productItem, 0, len(products))
	for _, p := range products {
		items = append(items, productItem{
			ProductKey:        p.ProductKey,
			LoanName:          p.LoanName,
			RatePct:           p.RatePct(),
			RateLabel:         domain.FormatRatePct(p.RatePct()),
			DefaultTermMonths: p.DefaultTermMonths,
		})
	}
	WriteJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

func (h *CalculatorHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteJSON(w, http.StatusRequestEntityTooLarge, APIResponse{Message: "request body too large"})
			return
		}
		WriteJSON(w, http.StatusBadRequest, APIResponse{Message: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.ProductKey) == "" {
		h.writeError(w, service.ErrNoProduct)
		return
	}

	c, err := h.run(r.Context(), formInput{
		Product:   req.ProductKey,
		Principal: req.Principal.String(),
		Months:    req.Months.String(),
		StartDate: req.StartDate,
		Submit:    true,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	v := c.Snapshot()
	page := render.BuildPage(v)
	chips := make([]chipItem, 0, len(page.Chips))
	for _, ch := range page.Chips {
		chips = append(chips, chipItem(ch))
	}
	WriteJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: calculateResponse{
			ProductKey: v.SelectedKey,
			Summary:    v.Result.Summary,
			Schedule:   v.Result.Schedule,
			Chips:      chips,
			Headers:    render.ScheduleHeaders,
			Rows:       page.Rows,
		},
	})
}

// ScheduleCSV recalculates from the query and streams the schedule as a
// download.
func (h *CalculatorHandler) ScheduleCSV(w http.ResponseWriter, r *http.Request) {
	in := formFromQuery(r.URL.Query())
	in.Submit = true

	c, err := h.run(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	v := c.Snapshot()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+render.CSVFilename(v.SelectedKey)+`"`)
	if err := render.WriteCSV(w, v.Result.Schedule); err != nil {
		h.log.Error("write schedule csv", zap.Error(err))
	}
}

func (h *CalculatorHandler) Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok"})
}

func (h *CalculatorHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case service.KindOf(err) == domain.KindValidation:
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		status = 499
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= 500 {
		h.log.Warn("loan service call failed", zap.Int("status", status), zap.Error(err))
	}
	WriteJSON(w, status, APIResponse{Message: err.Error()})
}

func csvHref(p render.Page) template.URL {
	if !p.CanExport {
		return ""
	}
	q := url.Values{}
	q.Set("product", p.SelectedKey)
	q.Set("principal", p.Principal)
	q.Set("months", p.Months)
	q.Set("start_date", p.StartDate)
	return template.URL("/schedule.csv?" + q.Encode())
}

func isSubmission(r *http.Request) bool {
	return r.URL.Query().Has("principal")
}
