package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BerylCAtieno/umaja/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"

	DefaultTimeout = 30 * time.Second

	maxErrorBody = 64 * 1024
)

// PayPalConfig configures the PayPal Orders v2 client.
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Mode         string // "sandbox" or "live"
	BaseURL      string // overrides Mode when set
	ReturnURL    string
	CancelURL    string
	BrandName    string
	Timeout      time.Duration
}

// PayPalClient talks to PayPal's REST API with an OAuth2 client-credentials
// token that is fetched and refreshed by the oauth2 transport.
type PayPalClient struct {
	baseURL    string
	httpClient *http.Client
	returnURL  string
	cancelURL  string
	brandName  string
}

func NewPayPalClient(cfg PayPalConfig) (*PayPalClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("paypal client id and secret are required")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		switch cfg.Mode {
		case "live":
			base = LiveBaseURL
		case "sandbox", "":
			base = SandboxBaseURL
		default:
			return nil, fmt.Errorf("unknown paypal mode %q", cfg.Mode)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// The token fetch uses this client too, so it shares the request timeout.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := cc.Client(tokenCtx)
	httpClient.Timeout = timeout

	brand := cfg.BrandName
	if brand == "" {
		brand = "UMAJA"
	}

	return &PayPalClient{
		baseURL:    base,
		httpClient: httpClient,
		returnURL:  cfg.ReturnURL,
		cancelURL:  cfg.CancelURL,
		brandName:  brand,
	}, nil
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalAppContext struct {
	BrandName  string `json:"brand_name,omitempty"`
	ReturnURL  string `json:"return_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
	UserAction string `json:"user_action,omitempty"`
}

type paypalCreateOrder struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext paypalAppContext     `json:"application_context"`
}

type paypalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type paypalOrder struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Links         []paypalLink `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type paypalError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (e *paypalError) hasIssue(issue string) bool {
	for _, d := range e.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}

func (e *paypalError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s", e.Name, e.Details[0].Issue)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	}
	return e.Name
}

// CreateCheckout creates a CAPTURE-intent order and returns the buyer approval link.
func (p *PayPalClient) CreateCheckout(ctx context.Context, order Order) (*Checkout, error) {
	body := paypalCreateOrder{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: order.ReferenceID,
			Description: order.Description,
			Amount: paypalAmount{
				CurrencyCode: order.Currency,
				Value:        models.FormatAmount(order.AmountCents),
			},
		}},
		ApplicationContext: paypalAppContext{
			BrandName:  p.brandName,
			ReturnURL:  p.returnURL,
			CancelURL:  p.cancelURL,
			UserAction: "PAY_NOW",
		},
	}

	var resp paypalOrder
	if err := p.do(ctx, "create order", http.MethodPost, "/v2/checkout/orders", order.ReferenceID, body, &resp); err != nil {
		return nil, err
	}

	checkout := &Checkout{OrderID: resp.ID, Status: resp.Status}
	for _, l := range resp.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			checkout.ApproveURL = l.Href
			break
		}
	}
	if checkout.OrderID == "" || checkout.ApproveURL == "" {
		return nil, &ProviderError{Op: "create order", Err: errors.New("response has no order id or approval link")}
	}
	return checkout, nil
}

// Capture captures an approved order. A declined instrument is reported as
// a DECLINED capture rather than an error.
func (p *PayPalClient) Capture(ctx context.Context, orderID string) (*Capture, error) {
	if orderID == "" {
		return nil, &ValidationError{Field: "order id", Reason: "is required"}
	}

	var resp paypalOrder
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	err := p.do(ctx, "capture order", http.MethodPost, path, "capture-"+orderID, struct{}{}, &resp)
	if err != nil {
		var pe *paypalError
		if errors.As(err, &pe) && pe.hasIssue("INSTRUMENT_DECLINED") {
			return &Capture{OrderID: orderID, Status: StatusDeclined}, nil
		}
		return nil, err
	}

	capture := &Capture{OrderID: resp.ID, Status: resp.Status}
	if len(resp.PurchaseUnits) > 0 && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		c := resp.PurchaseUnits[0].Payments.Captures[0]
		capture.CaptureID = c.ID
		if c.Status != StatusCompleted {
			capture.Status = c.Status
		}
	}
	return capture, nil
}

func (p *PayPalClient) do(ctx context.Context, op, method, path, requestID string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		pe := &paypalError{}
		if jsonErr := json.Unmarshal(raw, pe); jsonErr != nil || pe.Name == "" {
			pe = &paypalError{Name: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
		}
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Err: pe}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
