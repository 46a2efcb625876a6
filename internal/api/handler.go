// Package api is the HTTP surface of the service.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/BerylCAtieno/umaja/internal/analytics"
	"github.com/BerylCAtieno/umaja/internal/content"
	"github.com/BerylCAtieno/umaja/internal/enhancer"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/payment"
	"github.com/BerylCAtieno/umaja/internal/personality"
	"github.com/BerylCAtieno/umaja/internal/sales"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type Handler struct {
	renderer *content.Renderer
	enhancer *enhancer.Enhancer
	gate     *sales.Gate
	tracker  *analytics.Tracker
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(renderer *content.Renderer, enh *enhancer.Enhancer, gate *sales.Gate, tracker *analytics.Tracker, metrics *Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		renderer: renderer,
		enhancer: enh,
		gate:     gate,
		tracker:  tracker,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// SmileRequest is the body of POST /api/smile.
type SmileRequest struct {
	Archetype string `json:"archetype" binding:"required"`
	Language  string `json:"language"`
	Topic     string `json:"topic" binding:"required"`
	Date      string `json:"date"`
	Fallback  bool   `json:"fallback"`
	Enhance   bool   `json:"enhance"`
	SessionID string `json:"session_id"`
}

// SmileResponse wraps rendered content with the caller's session.
type SmileResponse struct {
	Smile     *models.Rendered `json:"smile"`
	SessionID string           `json:"session_id"`
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (h *Handler) ListArchetypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"archetypes": personality.All()})
}

func (h *Handler) ListTopics(c *gin.Context) {
	store := h.renderer.Store()
	c.JSON(http.StatusOK, gin.H{
		"default_language": store.DefaultLanguage(),
		"languages":        store.Languages(),
		"topics":           store.Topics(),
	})
}

func (h *Handler) ListCities(c *gin.Context) {
	store := h.renderer.Store()
	c.JSON(http.StatusOK, gin.H{
		"default_language": store.DefaultLanguage(),
		"languages":        store.Languages(),
		"cities":           store.Cities(),
	})
}

// Smile renders one text for an archetype, language and topic.
func (h *Handler) Smile(c *gin.Context) {
	var req SmileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	archetype, err := models.ParseArchetype(req.Archetype)
	if err != nil {
		h.respondError(c, &payment.ValidationError{Field: "archetype", Reason: err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	renderReq := models.RenderRequest{
		Archetype: archetype,
		Language:  h.language(req.Language),
		Subject:   req.Topic,
		Mode:      models.ModeTopic,
		Date:      date,
	}

	var rendered *models.Rendered
	if req.Fallback {
		rendered, err = h.renderer.RenderWithFallback(renderReq)
	} else {
		rendered, err = h.renderer.Render(renderReq)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	if req.Enhance {
		rendered = h.enhancer.Polish(c.Request.Context(), rendered)
	}

	sessionID := h.session(c, req.SessionID)
	h.observeRender(c, sessionID, models.EventContentGenerated, rendered)
	c.JSON(http.StatusOK, SmileResponse{Smile: rendered, SessionID: sessionID})
}

// DailySmile renders the topic of the day. Query: archetype, language, date.
func (h *Handler) DailySmile(c *gin.Context) {
	archetype, date, ok := h.archetypeAndDate(c)
	if !ok {
		return
	}

	rendered, err := h.renderer.Daily(archetype, h.language(c.Query("language")), date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	sessionID := h.session(c, c.Query("session_id"))
	h.observeRender(c, sessionID, models.EventContentGenerated, rendered)
	c.JSON(http.StatusOK, SmileResponse{Smile: rendered, SessionID: sessionID})
}

// WorldTour renders a city stop. Query: archetype, language, date.
func (h *Handler) WorldTour(c *gin.Context) {
	archetype, date, ok := h.archetypeAndDate(c)
	if !ok {
		return
	}

	rendered, err := h.renderer.WorldTour(archetype, h.language(c.Query("language")), c.Param("city"), date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	sessionID := h.session(c, c.Query("session_id"))
	h.observeRender(c, sessionID, models.EventWorldTourRendered, rendered)
	c.JSON(http.StatusOK, SmileResponse{Smile: rendered, SessionID: sessionID})
}

func (h *Handler) archetypeAndDate(c *gin.Context) (models.Archetype, time.Time, bool) {
	archetype := models.Professor
	if v := c.Query("archetype"); v != "" {
		a, err := models.ParseArchetype(v)
		if err != nil {
			h.respondError(c, &payment.ValidationError{Field: "archetype", Reason: err.Error()})
			return "", time.Time{}, false
		}
		archetype = a
	}

	date, err := parseDate(c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return "", time.Time{}, false
	}
	if date.IsZero() {
		date = h.now()
	}
	return archetype, date, true
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &payment.ValidationError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
	}
	return t, nil
}

func (h *Handler) language(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return h.renderer.Store().DefaultLanguage()
	}
	return lang
}

// session returns the caller's session id, starting a new session when
// none was given.
func (h *Handler) session(c *gin.Context, id string) string {
	if id != "" {
		return id
	}
	id = analytics.NewSessionID()
	h.tracker.TrackQuietly(c.Request.Context(), models.AnalyticsEvent{
		SessionID: id,
		EventType: models.EventSessionStarted,
		Payload:   map[string]interface{}{"path": c.FullPath()},
	})
	return id
}

func (h *Handler) observeRender(c *gin.Context, sessionID, eventType string, r *models.Rendered) {
	h.metrics.ObserveRender(r)
	h.tracker.TrackQuietly(c.Request.Context(), models.AnalyticsEvent{
		SessionID: sessionID,
		EventType: eventType,
		Payload: map[string]interface{}{
			"archetype": r.Archetype.String(),
			"language":  r.Language,
			"subject":   r.Subject,
			"fallback":  r.Fallback,
			"enhanced":  r.Enhanced,
		},
	})
}

// TrackRequest is the body of POST /api/beta/track.
type TrackRequest struct {
	SessionID string                 `json:"session_id"`
	EventType string                 `json:"event_type" binding:"required"`
	Payload   map[string]interface{} `json:"payload"`
}

// Track records a beta-program event. A failed write is logged and
// reported as not recorded; it is never an error for the caller.
func (h *Handler) Track(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	ev, err := h.tracker.Track(c.Request.Context(), models.AnalyticsEvent{
		SessionID: req.SessionID,
		EventType: req.EventType,
		Payload:   req.Payload,
	})
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			h.respondError(c, err)
			return
		}
		h.logger.Warn("analytics write failed", zap.String("event_type", req.EventType), zap.Error(err))
		c.JSON(http.StatusAccepted, gin.H{"recorded": false, "session_id": ev.SessionID})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"recorded": true, "id": ev.ID, "session_id": ev.SessionID})
}

func (h *Handler) Insights(c *gin.Context) {
	insights, err := h.tracker.Insights(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}
