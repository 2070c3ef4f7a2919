package repository

import (
	"context"

	"loan-calculator/domain"
)

// LoanGateway is the remote loan API: the product catalog and the
// amortization endpoint.
type LoanGateway interface {
	ListProducts(ctx context.Context) ([]domain.LoanProduct, error)
	Calculate(ctx context.Context, req domain.CalculationRequest) (domain.CalculationResult, error)
}

// APIError is returned by gateway implementations. Message is safe to show
// to the user as-is.
type APIError struct {
	Kind       domain.ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
