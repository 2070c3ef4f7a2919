package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

type Product struct {
	ProductKey          string  `json:"ProductKey"`
	LoanName            string  `json:"LoanName"`
	MonthlyInterestRate float64 `json:"MonthlyInterestRate"`
	DefaultTermMonths   int     `json:"DefaultTermMonths"`
	Method              Method  `json:"-"`
}

// DefaultProducts is the catalog served by the sandbox when none is given.
func DefaultProducts() []Product {
	return []Product{
		{ProductKey: "DEV", LoanName: "Development Loan", MonthlyInterestRate: 0.01, DefaultTermMonths: 36, Method: StraightLine},
		{ProductKey: "EMERG", LoanName: "Emergency Loan", MonthlyInterestRate: 0.015, DefaultTermMonths: 12, Method: Annuity},
		{ProductKey: "SCHOOL", LoanName: "School Fees Loan", MonthlyInterestRate: 0.012, DefaultTermMonths: 12, Method: StraightLine},
	}
}

type Summary struct {
	Principal          float64  `json:"Principal"`
	TotalInterest      float64  `json:"TotalInterest"`
	TotalPayable       float64  `json:"TotalPayable"`
	MonthlyPrincipal   *float64 `json:"MonthlyPrincipal,omitempty"`
	EMI                *float64 `json:"EMI,omitempty"`
	FirstMonthInterest float64  `json:"FirstMonthInterest"`
}

type Row struct {
	Period    int     `json:"period"`
	Date      string  `json:"date"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Total     float64 `json:"total"`
	Balance   float64 `json:"balance"`
}

type CalcResponse struct {
	Summary  Summary `json:"summary"`
	Schedule []Row   `json:"schedule"`
}

// Amortize builds the repayment schedule for principal over months, with
// the first installment due one month after start. All money is rounded to
// cents and the final installment absorbs rounding so the balance ends at zero.
func Amortize(p Product, principal float64, start time.Time, months int) (CalcResponse, error) {
	if principal <= 0 {
		return CalcResponse{}, errors.New("principal must be positive")
	}
	if principal > MaxLoanAmount {
		return CalcResponse{}, fmt.Errorf("principal exceeds the maximum of %.2f", MaxLoanAmount)
	}
	if months < MinTermMonths || months > MaxTermMonths {
		return CalcResponse{}, fmt.Errorf("term must be between %d and %d months", MinTermMonths, MaxTermMonths)
	}
	if p.MonthlyInterestRate < 0 {
		return CalcResponse{}, errors.New("rate must not be negative")
	}

	amount := decimal.NewFromFloat(principal).Round(2)
	r := decimal.NewFromFloat(p.MonthlyInterestRate)
	n := decimal.NewFromInt(int64(months))

	var installment decimal.Decimal
	switch {
	case p.Method == Annuity && r.IsZero():
		installment = amount.DivRound(n, 2)
	case p.Method == Annuity:
		f := one.Add(r).Pow(n)
		installment = amount.Mul(r).Mul(f).Div(f.Sub(one)).Round(2)
	default:
		installment = amount.DivRound(n, 2)
	}

	balance := amount
	totalInterest := decimal.Zero
	schedule := make([]Row, 0, months)
	for period := 1; period <= months; period++ {
		interest := balance.Mul(r).Round(2)

		var principalPart decimal.Decimal
		if p.Method == Annuity {
			principalPart = installment.Sub(interest)
		} else {
			principalPart = installment
		}
		if period == months || principalPart.GreaterThan(balance) {
			principalPart = balance
		}

		balance = balance.Sub(principalPart)
		totalInterest = totalInterest.Add(interest)
		schedule = append(schedule, Row{
			Period:    period,
			Date:      start.AddDate(0, period, 0).Format(dateLayout),
			Principal: principalPart.InexactFloat64(),
			Interest:  interest.InexactFloat64(),
			Total:     principalPart.Add(interest).InexactFloat64(),
			Balance:   balance.InexactFloat64(),
		})
	}

	summary := Summary{
		Principal:          amount.InexactFloat64(),
		TotalInterest:      totalInterest.InexactFloat64(),
		TotalPayable:       amount.Add(totalInterest).InexactFloat64(),
		FirstMonthInterest: schedule[0].Interest,
	}
	inst := installment.InexactFloat64()
	if p.Method == Annuity {
		summary.EMI = &inst
	} else {
		summary.MonthlyPrincipal = &inst
	}

	return CalcResponse{Summary: summary, Schedule: schedule}, nil
}

// ratePct is used in log lines.
func ratePct(p Product) string {
	return decimal.NewFromFloat(p.MonthlyInterestRate).Mul(hundred).StringFixed(2) + "%"
}
