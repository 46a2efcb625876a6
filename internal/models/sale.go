package models

import (
	"errors"
	"fmt"
	"time"
)

// SaleStatus is the lifecycle state of a Sale.
type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SalePaid      SaleStatus = "paid"
	SaleDelivered SaleStatus = "delivered"
	SaleFailed    SaleStatus = "failed"
)

// ErrInvalidTransition is returned for any status change outside
// pending -> paid -> delivered and pending -> failed.
var ErrInvalidTransition = errors.New("invalid sale transition")

var saleTransitions = map[SaleStatus][]SaleStatus{
	SalePending: {SalePaid, SaleFailed},
	SalePaid:    {SaleDelivered},
}

// CanTransition reports whether a sale in status s may move to next.
func (s SaleStatus) CanTransition(next SaleStatus) bool {
	for _, allowed := range saleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s SaleStatus) Terminal() bool {
	return len(saleTransitions[s]) == 0
}

// Sale is a purchase record for generated content. Each state change is
// appended to the ledger as a full snapshot.
type Sale struct {
	ID          string     `json:"id"`
	Contact     string     `json:"contact"`
	Archetype   Archetype  `json:"archetype"`
	Language    string     `json:"language"`
	Topic       string     `json:"topic"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Status      SaleStatus `json:"status"`
	ProviderRef string     `json:"provider_ref,omitempty"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
	Content     string     `json:"content,omitempty"`
	FailReason  string     `json:"fail_reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Transition moves the sale to next, stamping UpdatedAt.
func (s *Sale) Transition(next SaleStatus, at time.Time) error {
	if !s.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	s.UpdatedAt = at
	return nil
}

// Amount formats the price in major units, e.g. "4.99".
func (s *Sale) Amount() string {
	return FormatAmount(s.AmountCents)
}

// FormatAmount renders minor currency units as a decimal string.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
