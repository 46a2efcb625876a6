package content

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedDate = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	store, err := templates.Load()
	require.NoError(t, err)
	return NewRenderer(store, WithClock(func() time.Time { return fixedDate }))
}

func TestRenderEveryCombination(t *testing.T) {
	r := newTestRenderer(t)

	matrix := r.Store().Matrix()
	require.NotEmpty(t, matrix)

	for _, tr := range matrix {
		out, err := r.Render(models.RenderRequest{
			Archetype: tr.Archetype,
			Language:  tr.Language,
			Subject:   tr.Subject,
			Mode:      tr.Mode,
		})
		require.NoError(t, err, "%+v", tr)
		assert.NotEmpty(t, out.Text)
		assert.NotContains(t, out.Text, "{{")
		assert.NotContains(t, out.Text, "}}")
		assert.NotContains(t, out.Text, "<no value>")
	}

	assert.NoError(t, r.Check())
}

func TestRenderProfessorAIEthics(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render(models.RenderRequest{
		Archetype: models.Professor,
		Language:  "en",
		Subject:   "AI ethics",
	})
	require.NoError(t, err)

	assert.Equal(t, "ai-ethics", out.Subject)
	assert.Equal(t, models.ModeTopic, out.Mode)
	assert.Contains(t, out.Text, "AI ethics")
	assert.Contains(t, out.Text, "lecture")
	assert.Contains(t, out.Text, "March 14, 2026")
	assert.True(t, strings.HasPrefix(out.Text, "Good day, dear students."))
	assert.Equal(t, "The Professor: AI ethics", out.Title)
}

func TestRenderNotFound(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		name string
		req  models.RenderRequest
	}{
		{"unsupported language", models.RenderRequest{Archetype: models.Professor, Language: "xx", Subject: "AI ethics"}},
		{"unknown topic", models.RenderRequest{Archetype: models.Worrier, Language: "en", Subject: "quantum knitting"}},
		{"unknown city", models.RenderRequest{Archetype: models.Enthusiast, Language: "en", Subject: "atlantis", Mode: models.ModeCity}},
		{"city key in topic mode", models.RenderRequest{Archetype: models.Enthusiast, Language: "en", Subject: "tokyo"}},
		{"unknown archetype", models.RenderRequest{Archetype: "pirate", Language: "en", Subject: "coffee"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(tt.req)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRenderWithFallback(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.RenderWithFallback(models.RenderRequest{
		Archetype: models.Professor,
		Language:  "xx",
		Subject:   "coffee",
	})
	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, "en", out.Language)

	out, err = r.RenderWithFallback(models.RenderRequest{
		Archetype: models.Professor,
		Language:  "de",
		Subject:   "coffee",
	})
	require.NoError(t, err)
	assert.False(t, out.Fallback)
	assert.Contains(t, out.Text, "Kaffee")

	_, err = r.RenderWithFallback(models.RenderRequest{
		Archetype: models.Professor,
		Language:  "xx",
		Subject:   "quantum knitting",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDaily(t *testing.T) {
	r := newTestRenderer(t)

	first, err := r.Daily(models.Enthusiast, "en", fixedDate)
	require.NoError(t, err)
	again, err := r.Daily(models.Enthusiast, "en", fixedDate.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.Subject, again.Subject)

	seen := map[string]bool{}
	for i := 0; i < len(r.Store().Topics()); i++ {
		out, err := r.Daily(models.Enthusiast, "en", fixedDate.AddDate(0, 0, i))
		require.NoError(t, err)
		seen[out.Subject] = true
	}
	assert.Len(t, seen, len(r.Store().Topics()), "topics rotate daily")

	_, err = r.Daily(models.Enthusiast, "xx", fixedDate)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDailyAdvancesAcrossYearEnd(t *testing.T) {
	r := newTestRenderer(t)
	topics := r.Store().Topics()
	index := map[string]int{}
	for i, topic := range topics {
		index[topic.Key] = i
	}

	days := []time.Time{
		time.Date(2025, 12, 30, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
	}
	for i := 1; i < len(days); i++ {
		prev, err := r.Daily(models.Professor, "en", days[i-1])
		require.NoError(t, err)
		next, err := r.Daily(models.Professor, "en", days[i])
		require.NoError(t, err)
		assert.Equal(t, (index[prev.Subject]+1)%len(topics), index[next.Subject], days[i].Format("2006-01-02"))
	}
}

func TestDayNumber(t *testing.T) {
	assert.Equal(t, int64(0), dayNumber(time.Date(1970, 1, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, int64(-1), dayNumber(time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, dayNumber(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))+1,
		dayNumber(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWorldTour(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.WorldTour(models.Worrier, "es", "tokyo", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, models.ModeCity, out.Mode)
	assert.Contains(t, out.Text, "Tokio")
	assert.Contains(t, out.Text, "Japón")
	assert.Contains(t, out.Text, "14 de marzo de 2026")
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "March 14, 2026", FormatDate(fixedDate, "en"))
	assert.Equal(t, "14. März 2026", FormatDate(fixedDate, "de"))
	assert.Equal(t, "14 de marzo de 2026", FormatDate(fixedDate, "es"))
	assert.Equal(t, "2026-03-14", FormatDate(fixedDate, "fr"))
}

func TestFormatDateMonths(t *testing.T) {
	tests := []struct {
		date time.Time
		lang string
		want string
	}{
		{time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "de", "5. Januar 2026"},
		{time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), "es", "1 de julio de 2026"},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "de", "31. Dezember 2026"},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "es", "31 de diciembre de 2026"},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "en", "December 31, 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDate(tt.date, tt.lang))
		})
	}
}
