// Package render turns a calculator snapshot into display-ready strings and
// writes it out as terminal text or CSV.
package render

import (
	"strconv"

	"github.com/shopspring/decimal"

	"loan-calculator/domain"
	"loan-calculator/service"
)

const (
	Title    = "Loan Calculator"
	Subtitle = "Plan your repayments with MUFATE G SACCO"
	Note     = "* This is an indicative schedule. Final terms subject to approval by MUFATE G SACCO."

	NoProductsOption   = "(No products)"
	RunCalculationHint = "Run a calculation to see totals."
	NoProductsHint     = "No active products found."
	NoScheduleHint     = "No schedule yet."

	CalculateLabel   = "Calculate"
	CalculatingLabel = "Calculating…"
)

// ScheduleHeaders are the column titles of the repayment table.
var ScheduleHeaders = []string{"#", "Date", "Principal", "Interest", "Total", "Balance"}

type Chip struct {
	Label string
	Value string
}

type Option struct {
	Key      string
	Label    string
	Selected bool
}

// Page is everything a front end needs to draw the calculator.
type Page struct {
	Products         []Option
	ProductsEnabled  bool
	SelectedKey      string
	RateLabel        string
	DefaultMonths    string
	Months           string
	Principal        string
	StartDate        string
	Error            string
	Loading          bool
	CalculateLabel   string
	CalculateEnabled bool

	SummaryPlaceholder string
	Chips              []Chip

	Rows                [][]string
	SchedulePlaceholder string
	CanExport           bool
}

func BuildPage(v service.View) Page {
	p := Page{
		ProductsEnabled:  len(v.Products) > 0,
		SelectedKey:      v.SelectedKey,
		RateLabel:        domain.FormatRatePct(v.RatePct),
		DefaultMonths:    strconv.Itoa(v.DefaultMonths),
		Months:           v.Months,
		Principal:        v.Principal,
		StartDate:        v.StartDate,
		Error:            v.Error,
		Loading:          v.Loading(),
		CalculateLabel:   CalculateLabel,
		CalculateEnabled: !v.Loading() && len(v.Products) > 0,
	}
	if p.Loading {
		p.CalculateLabel = CalculatingLabel
	}

	if len(v.Products) == 0 {
		p.Products = []Option{{Label: NoProductsOption, Selected: true}}
	}
	for _, prod := range v.Products {
		p.Products = append(p.Products, Option{
			Key:      prod.ProductKey,
			Label:    prod.LoanName,
			Selected: prod.ProductKey == v.SelectedKey,
		})
	}

	if v.Result == nil {
		p.SummaryPlaceholder = NoProductsHint
		if len(v.Products) > 0 {
			p.SummaryPlaceholder = RunCalculationHint
		}
		p.SchedulePlaceholder = NoScheduleHint
		return p
	}

	p.Chips = SummaryChips(v.Result.Summary)
	p.Rows = ScheduleRows(v.Result.Schedule)
	if len(p.Rows) == 0 {
		p.SchedulePlaceholder = NoScheduleHint
	}
	p.CanExport = len(p.Rows) > 0
	return p
}

// SummaryChips lists the summary figures in display order. Optional figures
// appear only when the backend sent them.
func SummaryChips(s domain.Summary) []Chip {
	chips := []Chip{{Label: "Principal", Value: domain.FormatKES(s.Principal)}}
	optional := []struct {
		label string
		value *decimal.Decimal
	}{
		{"Monthly Principal", s.MonthlyPrincipal},
		{"Monthly Installment", s.EMI},
		{"First Month Interest", s.FirstMonthInterest},
	}
	for _, o := range optional {
		if o.value != nil {
			chips = append(chips, Chip{Label: o.label, Value: domain.FormatKES(*o.value)})
		}
	}
	return append(chips,
		Chip{Label: "Total Interest", Value: domain.FormatKES(s.TotalInterest)},
		Chip{Label: "Total Payable", Value: domain.FormatKES(s.TotalPayable)},
	)
}

// ScheduleRows formats the schedule in the order received.
func ScheduleRows(schedule []domain.ScheduleRow) [][]string {
	rows := make([][]string, 0, len(schedule))
	for _, r := range schedule {
		rows = append(rows, []string{
			strconv.Itoa(r.Period),
			r.Date,
			domain.FormatAmount(r.Principal),
			domain.FormatAmount(r.Interest),
			domain.FormatAmount(r.Total),
			domain.FormatAmount(r.Balance),
		})
	}
	return rows
}
