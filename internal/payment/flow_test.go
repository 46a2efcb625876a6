package payment

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/BerylCAtieno/umaja/internal/content"
	"github.com/BerylCAtieno/umaja/internal/jsonl"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider scripts provider answers for flow tests.
type fakeProvider struct {
	mu            sync.Mutex
	createErrs    []error
	createCalls   int
	captureStatus string
	captureErr    error
	captureCalls  int
}

func (p *fakeProvider) CreateCheckout(ctx context.Context, order Order) (*Checkout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.createCalls++
	if len(p.createErrs) > 0 {
		err := p.createErrs[0]
		p.createErrs = p.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &Checkout{
		OrderID:    "ORDER-" + order.ReferenceID,
		ApproveURL: "https://paypal.test/approve/" + order.ReferenceID,
		Status:     "CREATED",
	}, nil
}

func (p *fakeProvider) Capture(ctx context.Context, orderID string) (*Capture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.captureCalls++
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	status := p.captureStatus
	if status == "" {
		status = StatusCompleted
	}
	return &Capture{OrderID: orderID, CaptureID: "CAP-1", Status: status}, nil
}

var testPricing = Pricing{PriceCents: 499, Currency: "EUR"}

func newTestFlow(t *testing.T, provider Provider) (*Flow, *Ledger) {
	t.Helper()
	store, err := templates.Load()
	require.NoError(t, err)

	ledger := NewLedger(filepath.Join(t.TempDir(), "sales.jsonl"), jsonl.NewAppender())
	flow := NewFlow(provider, ledger, content.NewRenderer(store), testPricing, zap.NewNop(),
		WithRetryDelay(time.Millisecond),
	)
	return flow, ledger
}

func validPurchase() PurchaseRequest {
	return PurchaseRequest{
		Contact:   "buyer@example.com",
		Archetype: "professor",
		Language:  "en",
		Topic:     "AI ethics",
	}
}

func statuses(history []models.Sale) []models.SaleStatus {
	out := make([]models.SaleStatus, 0, len(history))
	for _, s := range history {
		out = append(out, s.Status)
	}
	return out
}

func TestCreate(t *testing.T) {
	provider := &fakeProvider{}
	flow, _ := newTestFlow(t, provider)

	sale, err := flow.Create(context.Background(), validPurchase())
	require.NoError(t, err)

	assert.Equal(t, models.SalePending, sale.Status)
	assert.Equal(t, "ai-ethics", sale.Topic)
	assert.Equal(t, int64(499), sale.AmountCents)
	assert.Equal(t, "EUR", sale.Currency)
	assert.Equal(t, "ORDER-"+sale.ID, sale.ProviderRef)
	assert.Contains(t, sale.CheckoutURL, sale.ID)
	assert.Len(t, sale.ID, 26)

	stored, err := flow.Get(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.ProviderRef, stored.ProviderRef)
	assert.Equal(t, models.SalePending, stored.Status)
}

func TestCreateValidation(t *testing.T) {
	flow, ledger := newTestFlow(t, &fakeProvider{})

	tests := []struct {
		name  string
		mod   func(*PurchaseRequest)
		field string
	}{
		{"missing contact", func(r *PurchaseRequest) { r.Contact = " " }, "contact"},
		{"bad contact", func(r *PurchaseRequest) { r.Contact = "not-an-email" }, "contact"},
		{"unknown archetype", func(r *PurchaseRequest) { r.Archetype = "pirate" }, "archetype"},
		{"missing topic", func(r *PurchaseRequest) { r.Topic = "" }, "topic"},
		{"unknown topic", func(r *PurchaseRequest) { r.Topic = "quantum knitting" }, "topic"},
		{"unsupported language", func(r *PurchaseRequest) { r.Language = "xx" }, "topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPurchase()
			tt.mod(&req)

			_, err := flow.Create(context.Background(), req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	all, err := ledger.List()
	require.NoError(t, err)
	assert.Empty(t, all, "invalid requests record nothing")
}

func TestCreateRetriesThenFails(t *testing.T) {
	unreachable := &ProviderError{Op: "create order", Err: errors.New("connection refused")}
	provider := &fakeProvider{createErrs: []error{unreachable, unreachable, unreachable}}
	flow, _ := newTestFlow(t, provider)

	sale, err := flow.Create(context.Background(), validPurchase())

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, DefaultMaxAttempts, provider.createCalls)
	require.NotNil(t, sale)
	assert.Equal(t, models.SaleFailed, sale.Status)

	history, err := flow.History(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.SaleStatus{models.SalePending, models.SaleFailed}, statuses(history))
}

func TestCreateRecoversOnRetry(t *testing.T) {
	provider := &fakeProvider{createErrs: []error{&ProviderError{Op: "create order", StatusCode: 503, Err: errors.New("unavailable")}}}
	flow, _ := newTestFlow(t, provider)

	sale, err := flow.Create(context.Background(), validPurchase())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.createCalls)
	assert.Equal(t, models.SalePending, sale.Status)
}

func TestCreateDoesNotRetryRejection(t *testing.T) {
	provider := &fakeProvider{createErrs: []error{&ProviderError{Op: "create order", StatusCode: 422, Err: errors.New("unprocessable")}}}
	flow, _ := newTestFlow(t, provider)

	_, err := flow.Create(context.Background(), validPurchase())
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 422, pe.StatusCode)
	assert.Equal(t, 1, provider.createCalls)
}

// hangingProvider blocks checkout creation until the caller gives up.
type hangingProvider struct {
	fakeProvider
}

func (p *hangingProvider) CreateCheckout(ctx context.Context, order Order) (*Checkout, error) {
	p.mu.Lock()
	p.createCalls++
	p.mu.Unlock()

	<-ctx.Done()
	return nil, &ProviderError{Op: "create order", Err: ctx.Err()}
}

func TestCreateTimesOut(t *testing.T) {
	store, err := templates.Load()
	require.NoError(t, err)
	provider := &hangingProvider{}
	ledger := NewLedger(filepath.Join(t.TempDir(), "sales.jsonl"), jsonl.NewAppender())
	flow := NewFlow(provider, ledger, content.NewRenderer(store), testPricing, zap.NewNop(),
		WithRetryDelay(time.Millisecond),
		WithCreateTimeout(50*time.Millisecond),
	)

	start := time.Now()
	sale, err := flow.Create(context.Background(), validPurchase())
	assert.Less(t, time.Since(start), 5*time.Second)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, sale)
	assert.Equal(t, models.SaleFailed, sale.Status)
	assert.Equal(t, 1, provider.createCalls)

	history, err := flow.History(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.SaleStatus{models.SalePending, models.SaleFailed}, statuses(history))
}

func TestCheckoutBudget(t *testing.T) {
	assert.Equal(t, 91*time.Second, CheckoutBudget(30*time.Second, 3, 500*time.Millisecond))
	assert.Equal(t, 30*time.Second, CheckoutBudget(30*time.Second, 1, 500*time.Millisecond))
	assert.Equal(t, 30*time.Second, CheckoutBudget(30*time.Second, 0, 500*time.Millisecond))
}

func TestConfirmDelivers(t *testing.T) {
	provider := &fakeProvider{}
	flow, _ := newTestFlow(t, provider)
	ctx := context.Background()

	sale, err := flow.Create(ctx, validPurchase())
	require.NoError(t, err)

	delivered, err := flow.Confirm(ctx, sale.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, models.SaleDelivered, delivered.Status)
	assert.Contains(t, delivered.Content, "AI ethics")

	history, err := flow.History(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.SaleStatus{
		models.SalePending, // created
		models.SalePending, // checkout link stored
		models.SalePaid,
		models.SaleDelivered,
	}, statuses(history))

	// the webhook arriving after the redirect is a no-op
	again, err := flow.Confirm(ctx, sale.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, models.SaleDelivered, again.Status)
	assert.Equal(t, 1, provider.captureCalls)
}

func TestConfirmConcurrentCallsCaptureOnce(t *testing.T) {
	provider := &fakeProvider{}
	flow, _ := newTestFlow(t, provider)
	ctx := context.Background()

	sale, err := flow.Create(ctx, validPurchase())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := flow.Confirm(ctx, sale.ProviderRef)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.captureCalls)
	history, err := flow.History(sale.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestConfirmProviderErrorKeepsPending(t *testing.T) {
	provider := &fakeProvider{captureErr: &ProviderError{Op: "capture order", Err: errors.New("timeout")}}
	flow, _ := newTestFlow(t, provider)
	ctx := context.Background()

	sale, err := flow.Create(ctx, validPurchase())
	require.NoError(t, err)

	_, err = flow.Confirm(ctx, sale.ProviderRef)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)

	stored, err := flow.Get(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SalePending, stored.Status)
}

func TestConfirmDeclined(t *testing.T) {
	provider := &fakeProvider{captureStatus: StatusDeclined}
	flow, _ := newTestFlow(t, provider)
	ctx := context.Background()

	sale, err := flow.Create(ctx, validPurchase())
	require.NoError(t, err)

	_, err = flow.Confirm(ctx, sale.ProviderRef)
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	stored, err := flow.Get(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleFailed, stored.Status)
	assert.Empty(t, stored.Content)

	_, err = flow.Confirm(ctx, sale.ProviderRef)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestConfirmVoided(t *testing.T) {
	provider := &fakeProvider{captureStatus: StatusVoided}
	flow, _ := newTestFlow(t, provider)
	ctx := context.Background()

	sale, err := flow.Create(ctx, validPurchase())
	require.NoError(t, err)

	_, err = flow.Confirm(ctx, sale.ProviderRef)
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	stored, err := flow.Get(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleFailed, stored.Status)
	assert.Equal(t, "payment voided", stored.FailReason)
}

func TestConfirmUnknownReference(t *testing.T) {
	flow, _ := newTestFlow(t, &fakeProvider{})

	_, err := flow.Confirm(context.Background(), "ORDER-NOPE")
	assert.ErrorIs(t, err, ErrSaleNotFound)
}
