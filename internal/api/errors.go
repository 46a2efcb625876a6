package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/BerylCAtieno/umaja/internal/analytics"
	"github.com/BerylCAtieno/umaja/internal/content"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/payment"
	"github.com/BerylCAtieno/umaja/internal/templates"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		ve *payment.ValidationError
		pe *payment.ProviderError
		ce *templates.ConfigurationError
	)
	switch {
	case errors.As(err, &ve), errors.Is(err, analytics.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrNotFound), errors.Is(err, payment.ErrSaleNotFound):
		return http.StatusNotFound
	case errors.As(err, &ce):
		// a table gap that startup validation did not catch
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, payment.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.As(err, &pe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	resp := ErrorResponse{Error: err.Error()}
	var ve *payment.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}

	switch status {
	case http.StatusInternalServerError:
		h.logger.Error("request error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		resp.Error = "internal server error"
	case http.StatusUnprocessableEntity:
		h.logger.Error("template configuration error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	case http.StatusBadGateway:
		resp.Error = "payment provider unavailable, please try again later"
	}

	c.JSON(status, resp)
}

// bindError turns gin binding failures into a ValidationError.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := snakeCase(fe.Field())
		switch fe.Tag() {
		case "required":
			return &payment.ValidationError{Field: field, Reason: "is required"}
		case "email":
			return &payment.ValidationError{Field: field, Reason: "must be an email address"}
		default:
			return &payment.ValidationError{Field: field, Reason: "failed " + fe.Tag() + " check"}
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return &payment.ValidationError{Field: "body", Reason: "is empty"}
	case errors.As(err, &syntaxErr):
		return &payment.ValidationError{Field: "body", Reason: "must be valid JSON"}
	case errors.As(err, &typeErr):
		return &payment.ValidationError{Field: typeErr.Field, Reason: "has the wrong type"}
	}
	return &payment.ValidationError{Field: "body", Reason: err.Error()}
}

// snakeCase turns a Go field name such as EventType into event_type.
// Acronyms stay together: SessionID becomes session_id.
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
