package analytics

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BerylCAtieno/umaja/internal/jsonl"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTracker(t *testing.T) (*Tracker, string) {
	t.Helper()
	dir := t.TempDir()
	return NewTracker(dir, jsonl.NewAppender(), zap.NewNop()), dir
}

func TestTrackWritesCategoryFile(t *testing.T) {
	tracker, dir := newTestTracker(t)
	ctx := context.Background()

	ev, err := tracker.Track(ctx, models.AnalyticsEvent{
		SessionID: "s-1",
		EventType: models.EventContentGenerated,
		Payload: map[string]interface{}{
			"archetype": "professor",
			"email":     "someone@example.com",
			"IP":        "10.0.0.1",
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())

	events, err := jsonl.Decode[models.AnalyticsEvent](filepath.Join(dir, "content.jsonl"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "s-1", events[0].SessionID)
	assert.Equal(t, "professor", events[0].Payload["archetype"])
	assert.NotContains(t, events[0].Payload, "email")
	assert.NotContains(t, events[0].Payload, "IP")
}

func TestTrackScrubsNestedPersonalKeys(t *testing.T) {
	tracker, dir := newTestTracker(t)

	_, err := tracker.Track(context.Background(), models.AnalyticsEvent{
		SessionID: "s-2",
		EventType: "feature.clicked",
		Payload: map[string]interface{}{
			"user": map[string]interface{}{
				"email": "nested@example.com",
				"ip":    "10.1.2.3",
				"plan":  "beta",
			},
			"contacts": []interface{}{
				map[string]interface{}{"Phone": "+49 30 1234567", "role": "friend"},
				"plain",
			},
		},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "feature.jsonl"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "nested@example.com")
	assert.NotContains(t, string(raw), "10.1.2.3")
	assert.NotContains(t, string(raw), "1234567")

	events, err := jsonl.Decode[models.AnalyticsEvent](filepath.Join(dir, "feature.jsonl"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	user, ok := events[0].Payload["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"plan": "beta"}, user)
	contacts, ok := events[0].Payload["contacts"].([]interface{})
	require.True(t, ok)
	require.Len(t, contacts, 2)
	assert.Equal(t, map[string]interface{}{"role": "friend"}, contacts[0])
	assert.Equal(t, "plain", contacts[1])
}

func TestTrackAssignsSession(t *testing.T) {
	tracker, _ := newTestTracker(t)

	ev, err := tracker.Track(context.Background(), models.AnalyticsEvent{EventType: "feature.clicked"})
	require.NoError(t, err)
	assert.Len(t, ev.SessionID, 36)
}

func TestTrackRejectsBadEventType(t *testing.T) {
	tracker, dir := newTestTracker(t)

	for _, et := range []string{"", "../../etc/passwd", "has space", "trailing."} {
		_, err := tracker.Track(context.Background(), models.AnalyticsEvent{EventType: et})
		assert.ErrorIs(t, err, ErrInvalidEvent, et)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcurrentTracksBothLand(t *testing.T) {
	tracker, dir := newTestTracker(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, session := range []string{"a", "b"} {
		wg.Add(1)
		go func(session string) {
			defer wg.Done()
			_, err := tracker.Track(ctx, models.AnalyticsEvent{
				SessionID: session,
				EventType: "feature.clicked",
				Payload:   map[string]interface{}{"feature": strings.Repeat(session, 8192)},
			})
			assert.NoError(t, err)
		}(session)
	}
	wg.Wait()

	raw, err := os.ReadFile(filepath.Join(dir, "feature.jsonl"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	sessions := map[string]bool{}
	for _, line := range lines {
		var ev models.AnalyticsEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		sessions[ev.SessionID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, sessions)
}

func TestTrackQuietlySwallowsWriteErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0o644))

	tracker := NewTracker(blocker, nil, nil)
	assert.NotPanics(t, func() {
		tracker.TrackQuietly(context.Background(), models.AnalyticsEvent{EventType: "feature.clicked"})
	})

	_, err := tracker.Track(context.Background(), models.AnalyticsEvent{EventType: "feature.clicked"})
	assert.Error(t, err)
}

func TestInsights(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []models.AnalyticsEvent{
		{SessionID: "s1", EventType: models.EventContentGenerated, Timestamp: base, Payload: map[string]interface{}{"archetype": "professor", "language": "en"}},
		{SessionID: "s1", EventType: models.EventContentGenerated, Timestamp: base.Add(time.Minute), Payload: map[string]interface{}{"archetype": "worrier", "language": "de"}},
		{SessionID: "s2", EventType: models.EventWorldTourRendered, Timestamp: base.Add(2 * time.Minute), Payload: map[string]interface{}{"archetype": "professor", "language": "en"}},
		{SessionID: "s3", EventType: models.EventFeatureClicked, Timestamp: base.Add(-time.Hour)},
	}
	for _, ev := range events {
		_, err := tracker.Track(ctx, ev)
		require.NoError(t, err)
	}

	got, err := tracker.Insights(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, got.TotalEvents)
	assert.Equal(t, 3, got.UniqueSessions)
	assert.Equal(t, 2, got.ByEventType[models.EventContentGenerated])
	assert.Equal(t, 1, got.ByCategory["worldtour"])
	assert.Equal(t, 2, got.ByArchetype["professor"])
	assert.Equal(t, 1, got.ByLanguage["de"])
	assert.Equal(t, []string{"content", "feature", "worldtour"}, got.Categories)
	require.NotNil(t, got.FirstEvent)
	assert.True(t, got.FirstEvent.Equal(base.Add(-time.Hour)))
	assert.True(t, got.LastEvent.Equal(base.Add(2*time.Minute)))
}

func TestInsightsEmpty(t *testing.T) {
	tracker, _ := newTestTracker(t)

	got, err := tracker.Insights(context.Background())
	require.NoError(t, err)
	assert.Zero(t, got.TotalEvents)
	assert.Empty(t, got.Categories)
}
