// Package payment sells rendered content through a third-party payment
// provider and keeps the sales ledger.
package payment

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/BerylCAtieno/umaja/internal/content"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 500 * time.Millisecond
)

// ContentRenderer renders the text a sale delivers.
type ContentRenderer interface {
	Render(req models.RenderRequest) (*models.Rendered, error)
}

// Pricing is the flat price of one piece of content.
type Pricing struct {
	PriceCents int64
	Currency   string
}

// PurchaseRequest is a buyer's request for a piece of content.
type PurchaseRequest struct {
	Contact   string `json:"contact" binding:"required,email"`
	Archetype string `json:"archetype" binding:"required"`
	Language  string `json:"language" binding:"required"`
	Topic     string `json:"topic" binding:"required"`
}

// Flow runs a sale from checkout creation through delivery.
type Flow struct {
	provider      Provider
	ledger        *Ledger
	renderer      ContentRenderer
	pricing       Pricing
	logger        *zap.Logger
	maxAttempts   int
	retryDelay    time.Duration
	createTimeout time.Duration
	now           func() time.Time

	// confirmMu serializes confirmations so the buyer redirect and the
	// provider webhook cannot both transition one sale.
	confirmMu sync.Mutex
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

func WithMaxAttempts(n int) FlowOption {
	return func(f *Flow) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) FlowOption {
	return func(f *Flow) { f.retryDelay = d }
}

// WithCreateTimeout bounds checkout creation, retries included. A sale that
// cannot get a checkout link in time is marked failed.
func WithCreateTimeout(d time.Duration) FlowOption {
	return func(f *Flow) { f.createTimeout = d }
}

func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) { f.now = now }
}

func NewFlow(provider Provider, ledger *Ledger, renderer ContentRenderer, pricing Pricing, logger *zap.Logger, opts ...FlowOption) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Flow{
		provider:    provider,
		ledger:      ledger,
		renderer:    renderer,
		pricing:     pricing,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CheckoutBudget is the longest checkout creation can take when every one of
// attempts provider calls runs into callTimeout.
func CheckoutBudget(callTimeout time.Duration, attempts int, retryDelay time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return callTimeout*time.Duration(attempts) + retryDelay*time.Duration(attempts-1)
}

// NewSaleID returns a time-ordered sale id.
func NewSaleID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Create validates the request, records a pending sale and asks the provider
// for a checkout link. When the provider cannot be reached after the
// configured attempts the sale is marked failed and a ProviderError returned.
func (f *Flow) Create(ctx context.Context, req PurchaseRequest) (*models.Sale, error) {
	rendered, err := f.validate(req)
	if err != nil {
		return nil, err
	}

	now := f.now().UTC()
	sale := &models.Sale{
		ID:          NewSaleID(),
		Contact:     strings.TrimSpace(req.Contact),
		Archetype:   rendered.Archetype,
		Language:    rendered.Language,
		Topic:       rendered.Subject,
		AmountCents: f.pricing.PriceCents,
		Currency:    f.pricing.Currency,
		Status:      models.SalePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.ledger.Record(sale); err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	checkoutCtx := ctx
	if f.createTimeout > 0 {
		var cancel context.CancelFunc
		checkoutCtx, cancel = context.WithTimeout(ctx, f.createTimeout)
		defer cancel()
	}

	checkout, err := f.createCheckout(checkoutCtx, sale, rendered.Title)
	if err != nil {
		f.logger.Error("checkout creation failed",
			zap.String("sale_id", sale.ID),
			zap.Int("attempts", f.maxAttempts),
			zap.Error(err),
		)
		sale.FailReason = err.Error()
		if tErr := sale.Transition(models.SaleFailed, f.now().UTC()); tErr == nil {
			if rErr := f.ledger.Record(sale); rErr != nil {
				f.logger.Error("failed to record failed sale", zap.String("sale_id", sale.ID), zap.Error(rErr))
			}
		}
		return sale, err
	}

	sale.ProviderRef = checkout.OrderID
	sale.CheckoutURL = checkout.ApproveURL
	sale.UpdatedAt = f.now().UTC()
	if err := f.ledger.Record(sale); err != nil {
		return nil, fmt.Errorf("failed to record checkout for sale %s: %w", sale.ID, err)
	}

	f.logger.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.String("provider_ref", sale.ProviderRef),
		zap.String("topic", sale.Topic),
		zap.String("amount", sale.Amount()),
	)
	return sale, nil
}

func (f *Flow) validate(req PurchaseRequest) (*models.Rendered, error) {
	contact := strings.TrimSpace(req.Contact)
	if contact == "" {
		return nil, &ValidationError{Field: "contact", Reason: "is required"}
	}
	if _, err := mail.ParseAddress(contact); err != nil {
		return nil, &ValidationError{Field: "contact", Reason: "must be an email address"}
	}

	archetype, err := models.ParseArchetype(req.Archetype)
	if err != nil {
		return nil, &ValidationError{Field: "archetype", Reason: err.Error()}
	}
	if strings.TrimSpace(req.Topic) == "" {
		return nil, &ValidationError{Field: "topic", Reason: "is required"}
	}

	rendered, err := f.renderer.Render(models.RenderRequest{
		Archetype: archetype,
		Language:  req.Language,
		Subject:   req.Topic,
		Mode:      models.ModeTopic,
	})
	if errors.Is(err, content.ErrNotFound) {
		return nil, &ValidationError{Field: "topic", Reason: err.Error()}
	}
	if err != nil {
		return nil, err
	}

	if f.pricing.PriceCents <= 0 || f.pricing.Currency == "" {
		return nil, fmt.Errorf("sale pricing is not configured")
	}
	return rendered, nil
}

func (f *Flow) createCheckout(ctx context.Context, sale *models.Sale, description string) (*Checkout, error) {
	order := Order{
		ReferenceID: sale.ID,
		Description: description,
		AmountCents: sale.AmountCents,
		Currency:    sale.Currency,
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		checkout, err := f.provider.CreateCheckout(ctx, order)
		if err == nil {
			return checkout, nil
		}
		lastErr = err

		if !retryable(err) || attempt == f.maxAttempts {
			break
		}
		f.logger.Warn("retrying checkout creation",
			zap.String("sale_id", sale.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, &ProviderError{Op: "create order", Err: ctx.Err()}
		case <-time.After(f.retryDelay):
		}
	}

	var pe *ProviderError
	if errors.As(lastErr, &pe) {
		return nil, lastErr
	}
	return nil, &ProviderError{Op: "create order", Err: lastErr}
}

// retryable reports whether another attempt could succeed: transport
// failures and 5xx answers are retried, 4xx rejections are not.
func retryable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return true
	}
	return pe.StatusCode == 0 || pe.StatusCode >= 500
}

// Confirm handles the provider's completion notice for an order. It
// captures the payment, marks the sale paid, renders the content and marks
// it delivered. Confirming a delivered sale returns it unchanged.
func (f *Flow) Confirm(ctx context.Context, providerRef string) (*models.Sale, error) {
	f.confirmMu.Lock()
	defer f.confirmMu.Unlock()

	sale, err := f.ledger.FindByProviderRef(providerRef)
	if err != nil {
		return nil, err
	}

	switch sale.Status {
	case models.SaleDelivered:
		return sale, nil
	case models.SaleFailed:
		return sale, fmt.Errorf("%w: sale %s has failed", models.ErrInvalidTransition, sale.ID)
	case models.SalePending:
		if err := f.capture(ctx, sale); err != nil {
			return sale, err
		}
	}

	// paid: deliver. A render failure leaves the sale paid so a repeated
	// confirmation can deliver it.
	rendered, err := f.renderer.Render(models.RenderRequest{
		Archetype: sale.Archetype,
		Language:  sale.Language,
		Subject:   sale.Topic,
		Mode:      models.ModeTopic,
		Date:      sale.CreatedAt,
	})
	if err != nil {
		return sale, fmt.Errorf("failed to render content for sale %s: %w", sale.ID, err)
	}

	sale.Content = rendered.Text
	if err := sale.Transition(models.SaleDelivered, f.now().UTC()); err != nil {
		return sale, err
	}
	if err := f.ledger.Record(sale); err != nil {
		return sale, fmt.Errorf("failed to record delivery for sale %s: %w", sale.ID, err)
	}

	f.logger.Info("sale delivered", zap.String("sale_id", sale.ID))
	return sale, nil
}

func (f *Flow) capture(ctx context.Context, sale *models.Sale) error {
	capture, err := f.provider.Capture(ctx, sale.ProviderRef)
	if err != nil {
		f.logger.Error("capture failed, sale stays pending",
			zap.String("sale_id", sale.ID),
			zap.Error(err),
		)
		return err
	}

	switch {
	case capture.Completed():
		if err := sale.Transition(models.SalePaid, f.now().UTC()); err != nil {
			return err
		}
		if err := f.ledger.Record(sale); err != nil {
			return fmt.Errorf("failed to record payment for sale %s: %w", sale.ID, err)
		}
		f.logger.Info("sale paid", zap.String("sale_id", sale.ID), zap.String("capture_id", capture.CaptureID))
		return nil

	case capture.Status == StatusDeclined, capture.Status == StatusVoided:
		sale.FailReason = "payment " + strings.ToLower(capture.Status)
		if err := sale.Transition(models.SaleFailed, f.now().UTC()); err != nil {
			return err
		}
		if err := f.ledger.Record(sale); err != nil {
			return fmt.Errorf("failed to record declined sale %s: %w", sale.ID, err)
		}
		return fmt.Errorf("%w: sale %s", ErrPaymentDeclined, sale.ID)

	default:
		return &ProviderError{Op: "capture order", Err: fmt.Errorf("unexpected capture status %q", capture.Status)}
	}
}

// Get returns the current state of a sale.
func (f *Flow) Get(id string) (*models.Sale, error) {
	return f.ledger.Get(id)
}

// History returns every recorded state of a sale.
func (f *Flow) History(id string) ([]models.Sale, error) {
	return f.ledger.History(id)
}
