// Package analytics records anonymized beta-program events as JSON lines,
// one file per event category.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BerylCAtieno/umaja/internal/jsonl"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidEvent is returned for events without a usable type.
var ErrInvalidEvent = errors.New("invalid analytics event")

var eventTypePattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// personalKeys are dropped from payloads before anything touches disk.
var personalKeys = map[string]bool{
	"email":      true,
	"contact":    true,
	"ip":         true,
	"ip_address": true,
	"name":       true,
	"phone":      true,
	"user_agent": true,
}

// Tracker appends events under dir.
type Tracker struct {
	dir      string
	appender *jsonl.Appender
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(dir string, appender *jsonl.Appender, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if appender == nil {
		appender = jsonl.NewAppender()
	}
	return &Tracker{
		dir:      dir,
		appender: appender,
		logger:   logger,
		now:      time.Now,
	}
}

// NewSessionID returns a random anonymous session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Track writes one event line to <dir>/<category>.jsonl.
func (t *Tracker) Track(ctx context.Context, ev models.AnalyticsEvent) (models.AnalyticsEvent, error) {
	ev.EventType = strings.ToLower(strings.TrimSpace(ev.EventType))
	if !eventTypePattern.MatchString(ev.EventType) {
		return ev, fmt.Errorf("%w: event type %q", ErrInvalidEvent, ev.EventType)
	}
	if ev.SessionID == "" {
		ev.SessionID = NewSessionID()
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = t.now().UTC()
	}
	ev.Payload = scrub(ev.Payload)

	path := t.pathFor(ev.Category())
	if err := t.appender.Append(path, ev); err != nil {
		return ev, fmt.Errorf("failed to record %s: %w", ev.EventType, err)
	}

	t.logger.Debug("tracked event",
		zap.String("event_type", ev.EventType),
		zap.String("session_id", ev.SessionID),
	)
	return ev, nil
}

// TrackQuietly records an event and only logs failures. Request handlers use
// it so an analytics problem never changes their response.
func (t *Tracker) TrackQuietly(ctx context.Context, ev models.AnalyticsEvent) {
	if _, err := t.Track(ctx, ev); err != nil {
		t.logger.Warn("analytics write failed",
			zap.String("event_type", ev.EventType),
			zap.Error(err),
		)
	}
}

func (t *Tracker) pathFor(category string) string {
	return filepath.Join(t.dir, category+".jsonl")
}

func scrub(payload map[string]interface{}) map[string]interface{} {
	if len(payload) == 0 {
		return nil
	}
	return scrubMap(payload)
}

// scrubMap drops personal keys at every depth, including maps nested in lists.
func scrubMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if personalKeys[strings.ToLower(k)] {
			continue
		}
		out[k] = scrubValue(v)
	}
	return out
}

func scrubValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return scrubMap(val)
	case []interface{}:
		items := make([]interface{}, len(val))
		for i, item := range val {
			items[i] = scrubValue(item)
		}
		return items
	default:
		return v
	}
}

// Insights is the read-side summary of all recorded events.
type Insights struct {
	TotalEvents    int            `json:"total_events"`
	UniqueSessions int            `json:"unique_sessions"`
	ByEventType    map[string]int `json:"by_event_type"`
	ByCategory     map[string]int `json:"by_category"`
	ByArchetype    map[string]int `json:"by_archetype"`
	ByLanguage     map[string]int `json:"by_language"`
	Categories     []string       `json:"categories"`
	FirstEvent     *time.Time     `json:"first_event,omitempty"`
	LastEvent      *time.Time     `json:"last_event,omitempty"`
}

// Insights reads every category file and aggregates it.
func (t *Tracker) Insights(ctx context.Context) (*Insights, error) {
	out := &Insights{
		ByEventType: map[string]int{},
		ByCategory:  map[string]int{},
		ByArchetype: map[string]int{},
		ByLanguage:  map[string]int{},
		Categories:  []string{},
	}

	files, err := filepath.Glob(filepath.Join(t.dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics files: %w", err)
	}
	sort.Strings(files)

	sessions := map[string]bool{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events, err := jsonl.Decode[models.AnalyticsEvent](path)
		if err != nil {
			return nil, err
		}
		out.Categories = append(out.Categories, strings.TrimSuffix(filepath.Base(path), ".jsonl"))

		for _, ev := range events {
			out.TotalEvents++
			out.ByEventType[ev.EventType]++
			out.ByCategory[ev.Category()]++
			sessions[ev.SessionID] = true
			if a, ok := ev.Payload["archetype"].(string); ok && a != "" {
				out.ByArchetype[a]++
			}
			if l, ok := ev.Payload["language"].(string); ok && l != "" {
				out.ByLanguage[l]++
			}
			ts := ev.Timestamp
			if out.FirstEvent == nil || ts.Before(*out.FirstEvent) {
				out.FirstEvent = &ts
			}
			if out.LastEvent == nil || ts.After(*out.LastEvent) {
				out.LastEvent = &ts
			}
		}
	}
	out.UniqueSessions = len(sessions)
	return out, nil
}
