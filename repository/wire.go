package repository

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"loan-calculator/domain"
)

var validate = validator.New()

// Wire shapes of the loan API. Pointers distinguish "absent" from zero so
// that the validator can reject missing fields.

type productsResponse struct {
	Items []productDTO `json:"items" validate:"dive"`
}

type productDTO struct {
	ProductKey          string           `json:"ProductKey" validate:"required"`
	LoanName            string           `json:"LoanName"`
	MonthlyInterestRate *decimal.Decimal `json:"MonthlyInterestRate" validate:"required"`
	DefaultTermMonths   *int             `json:"DefaultTermMonths" validate:"required,gt=0"`
}

type calcResponse struct {
	Summary  *summaryDTO `json:"summary" validate:"required"`
	Schedule []rowDTO    `json:"schedule" validate:"dive"`
}

type summaryDTO struct {
	Principal          *decimal.Decimal `json:"Principal" validate:"required"`
	TotalInterest      *decimal.Decimal `json:"TotalInterest" validate:"required"`
	TotalPayable       *decimal.Decimal `json:"TotalPayable" validate:"required"`
	MonthlyPrincipal   *decimal.Decimal `json:"MonthlyPrincipal"`
	EMI                *decimal.Decimal `json:"EMI"`
	FirstMonthInterest *decimal.Decimal `json:"FirstMonthInterest"`
}

type rowDTO struct {
	Period    *int             `json:"period" validate:"required,gte=1"`
	Date      string           `json:"date" validate:"required"`
	Principal *decimal.Decimal `json:"principal" validate:"required"`
	Interest  *decimal.Decimal `json:"interest" validate:"required"`
	Total     *decimal.Decimal `json:"total"`
	Balance   *decimal.Decimal `json:"balance" validate:"required"`
}

func (r productsResponse) toDomain() ([]domain.LoanProduct, error) {
	products := make([]domain.LoanProduct, 0, len(r.Items))
	seen := make(map[string]struct{}, len(r.Items))
	for _, item := range r.Items {
		if _, dup := seen[item.ProductKey]; dup {
			return nil, fmt.Errorf("duplicate product key %q", item.ProductKey)
		}
		seen[item.ProductKey] = struct{}{}

		name := item.LoanName
		if name == "" {
			name = item.ProductKey
		}
		products = append(products, domain.LoanProduct{
			ProductKey:          item.ProductKey,
			LoanName:            name,
			MonthlyInterestRate: *item.MonthlyInterestRate,
			DefaultTermMonths:   *item.DefaultTermMonths,
		})
	}
	return products, nil
}

func (r calcResponse) toDomain() (domain.CalculationResult, error) {
	s := r.Summary
	for name, v := range map[string]*decimal.Decimal{
		"Principal":     s.Principal,
		"TotalInterest": s.TotalInterest,
		"TotalPayable":  s.TotalPayable,
	} {
		if v.IsNegative() {
			return domain.CalculationResult{}, fmt.Errorf("summary %s is negative", name)
		}
	}

	result := domain.CalculationResult{
		Summary: domain.Summary{
			Principal:          *s.Principal,
			TotalInterest:      *s.TotalInterest,
			TotalPayable:       *s.TotalPayable,
			MonthlyPrincipal:   s.MonthlyPrincipal,
			EMI:                s.EMI,
			FirstMonthInterest: s.FirstMonthInterest,
		},
		Schedule: make([]domain.ScheduleRow, 0, len(r.Schedule)),
	}

	tolerance := decimal.NewFromFloat(BalanceTolerance)
	for i, row := range r.Schedule {
		if *row.Period != i+1 {
			return domain.CalculationResult{}, fmt.Errorf("schedule row %d has period %d", i+1, *row.Period)
		}
		if i > 0 {
			prev := result.Schedule[i-1].Balance
			if row.Balance.Sub(prev).GreaterThan(tolerance) {
				return domain.CalculationResult{}, fmt.Errorf("schedule balance increases at period %d", *row.Period)
			}
		}

		total := row.Principal.Add(*row.Interest)
		if row.Total != nil {
			total = *row.Total
		}
		result.Schedule = append(result.Schedule, domain.ScheduleRow{
			Period:    *row.Period,
			Date:      row.Date,
			Principal: *row.Principal,
			Interest:  *row.Interest,
			Total:     total,
			Balance:   *row.Balance,
		})
	}
	return result, nil
}
