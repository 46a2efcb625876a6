// Package sales gates paid delivery behind the sales feature flag.
package sales

import (
	"context"
	"errors"

	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/payment"
)

// Mode is the gate state. It is fixed when the gate is built.
type Mode string

const (
	Disabled Mode = "disabled"
	Enabled  Mode = "enabled"
)

// ComingSoonMessage is the fixed answer while sales are disabled.
const ComingSoonMessage = "Sales are coming soon. Stay tuned!"

// Flow is the payment flow the gate delegates to when enabled.
type Flow interface {
	Create(ctx context.Context, req payment.PurchaseRequest) (*models.Sale, error)
	Confirm(ctx context.Context, providerRef string) (*models.Sale, error)
	Get(id string) (*models.Sale, error)
}

// Outcome is the gate's answer to a sales request.
type Outcome struct {
	ComingSoon bool         `json:"coming_soon"`
	Message    string       `json:"message,omitempty"`
	Sale       *models.Sale `json:"sale,omitempty"`
}

// ComingSoon returns the fixed disabled-mode outcome.
func ComingSoon() *Outcome {
	return &Outcome{ComingSoon: true, Message: ComingSoonMessage}
}

// Gate is either Disabled or Enabled. A disabled gate has no side effects:
// it never reads the request and never touches the flow.
type Gate struct {
	mode Mode
	flow Flow
}

func NewGate(enabled bool, flow Flow) (*Gate, error) {
	if !enabled {
		return &Gate{mode: Disabled}, nil
	}
	if flow == nil {
		return nil, errors.New("sales are enabled but no payment flow is configured")
	}
	return &Gate{mode: Enabled, flow: flow}, nil
}

func (g *Gate) Mode() Mode {
	return g.mode
}

// Purchase starts a sale. decode fills the request and is only called when
// sales are enabled, so a disabled gate answers the same for any body.
func (g *Gate) Purchase(ctx context.Context, decode func(*payment.PurchaseRequest) error) (*Outcome, error) {
	switch g.mode {
	case Enabled:
		var req payment.PurchaseRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		sale, err := g.flow.Create(ctx, req)
		if err != nil {
			return &Outcome{Sale: sale}, err
		}
		return &Outcome{Message: "Complete the payment to receive your content.", Sale: sale}, nil
	default:
		return ComingSoon(), nil
	}
}

// Confirm completes the sale for a provider order reference.
func (g *Gate) Confirm(ctx context.Context, providerRef string) (*Outcome, error) {
	switch g.mode {
	case Enabled:
		sale, err := g.flow.Confirm(ctx, providerRef)
		if err != nil {
			return &Outcome{Sale: sale}, err
		}
		return &Outcome{Message: "Thank you! Your content is ready.", Sale: sale}, nil
	default:
		return ComingSoon(), nil
	}
}

// Status returns the current state of a sale.
func (g *Gate) Status(id string) (*Outcome, error) {
	switch g.mode {
	case Enabled:
		sale, err := g.flow.Get(id)
		if err != nil {
			return nil, err
		}
		return &Outcome{Sale: sale}, nil
	default:
		return ComingSoon(), nil
	}
}
