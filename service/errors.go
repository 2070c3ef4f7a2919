package service

import (
	"errors"

	"loan-calculator/domain"
	"loan-calculator/repository"
)

// ValidationError is a local precondition failure. No request was sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrNoProduct        = &ValidationError{Message: MsgSelectProduct}
	ErrInvalidAmount    = &ValidationError{Message: MsgInvalidAmount}
	ErrInvalidMonths    = &ValidationError{Message: MsgInvalidMonths}
	ErrInvalidStartDate = &ValidationError{Message: MsgInvalidStartDate}
	ErrUnknownProduct   = &ValidationError{Message: MsgUnknownProduct}

	// ErrCalculationInFlight is returned by any form operation attempted
	// while a calculation is outstanding.
	ErrCalculationInFlight = errors.New("a calculation is already in progress")
	// ErrCatalogLoading is returned when LoadProducts is already running.
	ErrCatalogLoading = errors.New("the product catalog is already loading")
	// ErrCatalogLoaded is returned by LoadProducts once a catalog is in
	// place; use Reset to start over.
	ErrCatalogLoaded = errors.New("the product catalog is already loaded")
	// ErrResultDiscarded means the controller was reset while the request
	// was in flight and its outcome was dropped.
	ErrResultDiscarded = errors.New("result discarded after reset")
)

// KindOf classifies err for display.
func KindOf(err error) domain.ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return domain.KindValidation
	}
	var apiErr *repository.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return domain.KindNetwork
}
