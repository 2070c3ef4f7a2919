package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used on the wire and in form fields.
const DateLayout = "2006-01-02"

// LoanProduct is a rate/term template offered by the SACCO.
type LoanProduct struct {
	ProductKey          string
	LoanName            string
	MonthlyInterestRate decimal.Decimal
	DefaultTermMonths   int
}

// RatePct is the monthly rate expressed as a percentage (0.015 -> 1.5).
func (p LoanProduct) RatePct() float64 {
	return p.MonthlyInterestRate.Mul(decimal.NewFromInt(100)).InexactFloat64()
}

type CalculationRequest struct {
	ProductKey string
	Principal  decimal.Decimal
	StartDate  time.Time
	TermMonths int
}

// MarshalJSON writes the body expected by POST /loan/calc. Principal goes out
// as a JSON number, not a quoted string.
func (r CalculationRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ProductKey string      `json:"product_key"`
		Principal  json.Number `json:"principal"`
		StartDate  string      `json:"start_date"`
		TermMonths int         `json:"term_months"`
	}{
		ProductKey: r.ProductKey,
		Principal:  json.Number(r.Principal.String()),
		StartDate:  r.StartDate.Format(DateLayout),
		TermMonths: r.TermMonths,
	})
}

type Summary struct {
	Principal     decimal.Decimal `json:"principal"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	TotalPayable  decimal.Decimal `json:"total_payable"`

	// Optional figures; nil when the backend did not send them.
	MonthlyPrincipal   *decimal.Decimal `json:"monthly_principal,omitempty"`
	EMI                *decimal.Decimal `json:"emi,omitempty"`
	FirstMonthInterest *decimal.Decimal `json:"first_month_interest,omitempty"`
}

var cent = decimal.New(1, -2)

// Consistent reports whether TotalPayable equals Principal + TotalInterest
// to within one cent.
func (s Summary) Consistent() bool {
	diff := s.Principal.Add(s.TotalInterest).Sub(s.TotalPayable).Abs()
	return diff.LessThanOrEqual(cent)
}

type ScheduleRow struct {
	Period    int             `json:"period"`
	Date      string          `json:"date"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Total     decimal.Decimal `json:"total"`
	Balance   decimal.Decimal `json:"balance"`
}

type CalculationResult struct {
	Summary  Summary
	Schedule []ScheduleRow
}
