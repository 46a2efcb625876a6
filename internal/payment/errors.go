package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrSaleNotFound is returned when no ledger entry matches an id or
	// provider reference.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrPaymentDeclined is returned when the provider reports that the
	// payment did not complete.
	ErrPaymentDeclined = errors.New("payment declined")
)

// ValidationError reports a malformed purchase request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProviderError reports that the payment provider was unreachable or
// rejected a call.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment provider %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("payment provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
