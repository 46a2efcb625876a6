package enhancer

import (
	"context"
	"errors"
	"testing"

	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/BerylCAtieno/umaja/internal/personality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text   string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

func rendered() *models.Rendered {
	return &models.Rendered{
		Archetype: models.Worrier,
		Language:  "en",
		Mode:      models.ModeTopic,
		Subject:   "rain",
		Title:     "The Worrier: rain",
		Text:      "Oh no. Rain again.",
	}
}

func TestPolish(t *testing.T) {
	gen := &fakeGenerator{text: "```\nOh no, oh no. The rain is back.\n```"}
	e := New(gen, nil)
	require.True(t, e.Enabled())

	in := rendered()
	out := e.Polish(context.Background(), in)

	assert.True(t, out.Enhanced)
	assert.Equal(t, "Oh no, oh no. The rain is back.", out.Text)
	assert.Equal(t, "Oh no. Rain again.", in.Text, "input is not modified")
	assert.Contains(t, gen.prompt, "The Worrier")
	assert.Contains(t, gen.prompt, "Oh no. Rain again.")
}

func TestPolishFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"empty", &fakeGenerator{text: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := rendered()
			out := New(tt.gen, nil).Polish(context.Background(), in)
			assert.Same(t, in, out)
			assert.False(t, out.Enhanced)
		})
	}
}

func TestDisabledEnhancer(t *testing.T) {
	var nilEnhancer *Enhancer
	assert.False(t, nilEnhancer.Enabled())

	in := rendered()
	assert.Same(t, in, nilEnhancer.Polish(context.Background(), in))
	assert.Same(t, in, New(nil, nil).Polish(context.Background(), in))
}

func TestBuildPrompt(t *testing.T) {
	profile, err := personality.Select(models.Professor)
	require.NoError(t, err)

	r := rendered()
	r.Archetype = models.Professor
	r.Language = "de"

	prompt := buildPrompt(profile, r)
	assert.Contains(t, prompt, profile.DisplayName)
	assert.Contains(t, prompt, profile.Tone)
	assert.Contains(t, prompt, "(de)")
}
