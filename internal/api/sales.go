package api

import (
	"net/http"
	"time"

	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/payment"
	"github.com/BerylCAtieno/umaja/internal/sales"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookApprovedEvent is the PayPal webhook event that triggers capture.
const WebhookApprovedEvent = "CHECKOUT.ORDER.APPROVED"

// SaleView is the public form of a sale. The buyer contact is never returned.
type SaleView struct {
	ID          string            `json:"id"`
	Status      models.SaleStatus `json:"status"`
	Archetype   models.Archetype  `json:"archetype"`
	Language    string            `json:"language"`
	Topic       string            `json:"topic"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	CheckoutURL string            `json:"checkout_url,omitempty"`
	Content     string            `json:"content,omitempty"`
	FailReason  string            `json:"fail_reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func newSaleView(s *models.Sale) *SaleView {
	if s == nil {
		return nil
	}
	v := &SaleView{
		ID:         s.ID,
		Status:     s.Status,
		Archetype:  s.Archetype,
		Language:   s.Language,
		Topic:      s.Topic,
		Amount:     s.Amount(),
		Currency:   s.Currency,
		FailReason: s.FailReason,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	switch s.Status {
	case models.SalePending:
		v.CheckoutURL = s.CheckoutURL
	case models.SaleDelivered:
		v.Content = s.Content
	}
	return v
}

// SaleResponse is the body of every sales endpoint.
type SaleResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Sale    *SaleView `json:"sale,omitempty"`
}

func comingSoon(c *gin.Context) {
	c.JSON(http.StatusOK, SaleResponse{Status: "coming_soon", Message: sales.ComingSoonMessage})
}

// CreateSale starts a checkout. While sales are disabled the body is not
// read and the fixed coming-soon answer is returned.
func (h *Handler) CreateSale(c *gin.Context) {
	out, err := h.gate.Purchase(c.Request.Context(), func(req *payment.PurchaseRequest) error {
		if err := c.ShouldBindJSON(req); err != nil {
			return bindError(err)
		}
		return nil
	})
	if err != nil {
		if out != nil && out.Sale != nil {
			h.metrics.ObserveSale("failed")
			h.logger.Warn("sale failed", zap.String("sale_id", out.Sale.ID), zap.Error(err))
		}
		h.respondError(c, err)
		return
	}
	if out.ComingSoon {
		h.metrics.ObserveSale("coming_soon")
		comingSoon(c)
		return
	}

	h.metrics.ObserveSale("created")
	h.tracker.TrackQuietly(c.Request.Context(), models.AnalyticsEvent{
		SessionID: c.GetHeader("X-Session-ID"),
		EventType: models.EventSaleCreated,
		Payload: map[string]interface{}{
			"archetype": out.Sale.Archetype.String(),
			"language":  out.Sale.Language,
			"topic":     out.Sale.Topic,
			"amount":    out.Sale.Amount(),
			"currency":  out.Sale.Currency,
		},
	})

	c.JSON(http.StatusCreated, SaleResponse{
		Status:  string(out.Sale.Status),
		Message: out.Message,
		Sale:    newSaleView(out.Sale),
	})
}

// GetSale returns the current state of a sale.
func (h *Handler) GetSale(c *gin.Context) {
	out, err := h.gate.Status(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if out.ComingSoon {
		comingSoon(c)
		return
	}
	c.JSON(http.StatusOK, SaleResponse{Status: string(out.Sale.Status), Sale: newSaleView(out.Sale)})
}

// ConfirmSale is the PayPal return URL. PayPal appends the order id as
// the token query parameter.
func (h *Handler) ConfirmSale(c *gin.Context) {
	token := c.Query("token")
	if h.gate.Mode() == sales.Enabled && token == "" {
		h.respondError(c, &payment.ValidationError{Field: "token", Reason: "is required"})
		return
	}
	h.confirm(c, token)
}

type webhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID string `json:"id"`
	} `json:"resource"`
}

// Webhook handles PayPal order notifications. Events other than order
// approval are acknowledged and ignored.
func (h *Handler) Webhook(c *gin.Context) {
	if h.gate.Mode() == sales.Disabled {
		comingSoon(c)
		return
	}

	var ev webhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	if ev.EventType != WebhookApprovedEvent {
		h.logger.Debug("ignoring webhook event", zap.String("event_type", ev.EventType), zap.String("event_id", ev.ID))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if ev.Resource.ID == "" {
		h.respondError(c, &payment.ValidationError{Field: "resource.id", Reason: "is required"})
		return
	}
	h.confirm(c, ev.Resource.ID)
}

func (h *Handler) confirm(c *gin.Context, providerRef string) {
	out, err := h.gate.Confirm(c.Request.Context(), providerRef)
	if err != nil {
		if statusFor(err) == http.StatusPaymentRequired {
			h.metrics.ObserveSale("declined")
		}
		h.respondError(c, err)
		return
	}
	if out.ComingSoon {
		comingSoon(c)
		return
	}

	if out.Sale.Status == models.SaleDelivered {
		h.metrics.ObserveSale("delivered")
		h.tracker.TrackQuietly(c.Request.Context(), models.AnalyticsEvent{
			EventType: models.EventSaleDelivered,
			Payload: map[string]interface{}{
				"archetype": out.Sale.Archetype.String(),
				"language":  out.Sale.Language,
				"topic":     out.Sale.Topic,
			},
		})
	}

	c.JSON(http.StatusOK, SaleResponse{
		Status:  string(out.Sale.Status),
		Message: out.Message,
		Sale:    newSaleView(out.Sale),
	})
}
