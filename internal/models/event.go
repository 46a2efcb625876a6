package models

import (
	"strings"
	"time"
)

// AnalyticsEvent is an anonymized beta-program interaction. Events are
// written once and never mutated.
type AnalyticsEvent struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Category returns the event type prefix before the first dot, which
// selects the file the event is appended to.
func (e AnalyticsEvent) Category() string {
	category, _, _ := strings.Cut(e.EventType, ".")
	return category
}

// Event types emitted by the service itself.
const (
	EventSessionStarted    = "session.started"
	EventContentGenerated  = "content.generated"
	EventWorldTourRendered = "worldtour.generated"
	EventSaleCreated       = "sale.created"
	EventSaleDelivered     = "sale.delivered"
	EventFeatureClicked    = "feature.clicked"
)
