package payment

import "context"

// Order is what the provider is asked to collect.
type Order struct {
	ReferenceID string
	Description string
	AmountCents int64
	Currency    string
}

// Checkout is a created provider order awaiting buyer approval.
type Checkout struct {
	OrderID    string
	ApproveURL string
	Status     string
}

// Capture is the provider's answer to a capture request.
type Capture struct {
	OrderID   string
	CaptureID string
	Status    string
}

// Completed reports whether the money has moved.
func (c *Capture) Completed() bool {
	return c.Status == StatusCompleted
}

// Capture status values used by PayPal's Orders API.
const (
	StatusCompleted = "COMPLETED"
	StatusDeclined  = "DECLINED"
	StatusVoided    = "VOIDED"
)

// Provider is a third-party payment API.
type Provider interface {
	CreateCheckout(ctx context.Context, order Order) (*Checkout, error)
	Capture(ctx context.Context, orderID string) (*Capture, error)
}
