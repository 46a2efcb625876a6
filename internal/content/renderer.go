// Package content renders archetype-voiced text from the template tables.
package content

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/personality"
	"github.com/BerylCAtieno/umaja/internal/templates"
)

// ErrNotFound is returned when the (archetype, language, subject)
// combination has no entry in the tables.
var ErrNotFound = errors.New("content not found")

// Renderer fills message bodies from the template store. It holds no
// mutable state and is safe for concurrent use.
type Renderer struct {
	store *templates.Store
	now   func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock overrides the clock used when a request carries no date.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

func NewRenderer(store *templates.Store, opts ...Option) *Renderer {
	r := &Renderer{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store exposes the underlying tables for catalog listings.
func (r *Renderer) Store() *templates.Store {
	return r.store
}

// Render produces the text for one request.
func (r *Renderer) Render(req models.RenderRequest) (*models.Rendered, error) {
	mode := req.Mode
	if mode == "" {
		mode = models.ModeTopic
	}

	profile, err := personality.Select(req.Archetype)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	tmpl, ok := r.store.Template(req.Archetype, req.Language, mode)
	if !ok {
		return nil, fmt.Errorf("%w: no %s template for %s in language %q", ErrNotFound, mode, req.Archetype, req.Language)
	}
	voice, ok := profile.Voice(req.Language)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no voice for language %q", ErrNotFound, req.Archetype, req.Language)
	}
	subject, ok := r.store.Subject(mode, req.Subject)
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s %q", ErrNotFound, mode, req.Subject)
	}
	loc, ok := subject.In(req.Language)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q has no %q translation", ErrNotFound, mode, subject.Key, req.Language)
	}

	date := req.Date
	if date.IsZero() {
		date = r.now()
	}

	data := map[string]string{
		templates.SlotGreeting:  voice.Greeting,
		templates.SlotSignoff:   voice.Signoff,
		templates.SlotAdjective: voice.Adjective(subject.Key),
		templates.SlotSubject:   loc.Name,
		templates.SlotDetail:    loc.Detail,
		templates.SlotCountry:   loc.Country,
		templates.SlotDate:      FormatDate(date, req.Language),
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return nil, &templates.ConfigurationError{Key: tmpl.Name(), Reason: err.Error()}
	}

	text := strings.TrimSpace(b.String())
	if text == "" || unresolved(text) {
		return nil, &templates.ConfigurationError{Key: tmpl.Name(), Reason: "rendered text is empty or has unresolved slots"}
	}

	return &models.Rendered{
		Archetype: req.Archetype,
		Language:  req.Language,
		Mode:      mode,
		Subject:   subject.Key,
		Title:     fmt.Sprintf("%s: %s", profile.DisplayName, loc.Name),
		Text:      text,
	}, nil
}

// RenderWithFallback renders in the requested language and retries in the
// default language when that combination is missing.
func (r *Renderer) RenderWithFallback(req models.RenderRequest) (*models.Rendered, error) {
	out, err := r.Render(req)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return out, err
	}

	def := r.store.DefaultLanguage()
	if req.Language == def {
		return nil, err
	}

	req.Language = def
	out, fbErr := r.Render(req)
	if fbErr != nil {
		return nil, err
	}
	out.Fallback = true
	return out, nil
}

// Daily renders the smile of the day. The topic rotates through the catalog
// once per calendar day, so every caller sees the same topic on a given date.
func (r *Renderer) Daily(a models.Archetype, lang string, date time.Time) (*models.Rendered, error) {
	topics := r.store.Topics()
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: topic catalog is empty", ErrNotFound)
	}
	if date.IsZero() {
		date = r.now()
	}
	idx := int(dayNumber(date) % int64(len(topics)))
	if idx < 0 {
		idx += len(topics)
	}
	topic := topics[idx]

	return r.Render(models.RenderRequest{
		Archetype: a,
		Language:  lang,
		Subject:   topic.Key,
		Mode:      models.ModeTopic,
		Date:      date,
	})
}

// dayNumber counts calendar days since 1970-01-01, read in date's own zone.
func dayNumber(date time.Time) int64 {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// WorldTour renders a city stop.
func (r *Renderer) WorldTour(a models.Archetype, lang, city string, date time.Time) (*models.Rendered, error) {
	return r.Render(models.RenderRequest{
		Archetype: a,
		Language:  lang,
		Subject:   city,
		Mode:      models.ModeCity,
		Date:      date,
	})
}

// Check renders every combination in the matrix and reports any that fail.
// It is run at startup next to Store.Validate.
func (r *Renderer) Check() error {
	var errs []error
	for _, t := range r.store.Matrix() {
		_, err := r.Render(models.RenderRequest{
			Archetype: t.Archetype,
			Language:  t.Language,
			Subject:   t.Subject,
			Mode:      t.Mode,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s/%s/%s: %w", t.Archetype, t.Language, t.Mode, t.Subject, err))
		}
	}
	return errors.Join(errs...)
}

func unresolved(text string) bool {
	return strings.Contains(text, "{{") || strings.Contains(text, "<no value>")
}
