// Package personality defines the voice of each archetype: how it greets,
// signs off and which words it reaches for.
package personality

import (
	"fmt"
	"hash/fnv"

	"github.com/BerylCAtieno/umaja/internal/models"
)

// Voice is an archetype's word choice in one language.
type Voice struct {
	Greeting   string   `json:"greeting"`
	Signoff    string   `json:"signoff"`
	Adjectives []string `json:"adjectives"`
}

// Profile is the tone profile of an archetype.
type Profile struct {
	Archetype   models.Archetype `json:"archetype"`
	DisplayName string           `json:"display_name"`
	Tone        string           `json:"tone"`
	Voices      map[string]Voice `json:"voices"`
}

// Voice returns the profile's voice in lang.
func (p Profile) Voice(lang string) (Voice, bool) {
	v, ok := p.Voices[lang]
	return v, ok
}

// Adjective picks one of the voice's adjectives for a subject. The same
// subject always gets the same word so renders stay reproducible.
func (v Voice) Adjective(subject string) string {
	if len(v.Adjectives) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(subject))
	return v.Adjectives[h.Sum32()%uint32(len(v.Adjectives))]
}

// ProfessorProfile lectures, with a fact and a little homework.
var ProfessorProfile = Profile{
	Archetype:   models.Professor,
	DisplayName: "The Professor",
	Tone:        "Measured and curious. Frames everything as a small lecture with evidence and homework.",
	Voices: map[string]Voice{
		"en": {
			Greeting:   "Good day, dear students.",
			Signoff:    "Class dismissed, with a smile.",
			Adjectives: []string{"fascinating", "remarkable", "instructive", "thought-provoking"},
		},
		"de": {
			Greeting:   "Guten Tag, liebe Studierende.",
			Signoff:    "Die Vorlesung ist beendet, mit einem Lächeln.",
			Adjectives: []string{"faszinierendes", "bemerkenswertes", "lehrreiches", "anregendes"},
		},
		"es": {
			Greeting:   "Buenos días, queridos estudiantes.",
			Signoff:    "Se termina la clase, con una sonrisa.",
			Adjectives: []string{"fascinante", "notable", "instructivo", "estimulante"},
		},
	},
}

// WorrierProfile frets first and ends on the bright side.
var WorrierProfile = Profile{
	Archetype:   models.Worrier,
	DisplayName: "The Worrier",
	Tone:        "Anxious at first, then talks itself into optimism by the last line.",
	Voices: map[string]Voice{
		"en": {
			Greeting:   "Oh dear, oh dear.",
			Signoff:    "Deep breaths. It's going to be okay.",
			Adjectives: []string{"overwhelming", "complicated", "uncertain", "a bit much"},
		},
		"de": {
			Greeting:   "Oje, oje.",
			Signoff:    "Tief durchatmen. Alles wird gut.",
			Adjectives: []string{"überwältigend", "kompliziert", "ungewiss", "ein bisschen viel"},
		},
		"es": {
			Greeting:   "Ay, ay, ay.",
			Signoff:    "Respira hondo. Todo va a salir bien.",
			Adjectives: []string{"abrumador", "complicado", "incierto", "demasiado"},
		},
	},
}

// EnthusiastProfile celebrates everything at full volume.
var EnthusiastProfile = Profile{
	Archetype:   models.Enthusiast,
	DisplayName: "The Enthusiast",
	Tone:        "Loud, warm and exclamatory. Everything is the best thing ever.",
	Voices: map[string]Voice{
		"en": {
			Greeting:   "Hey hey hey!",
			Signoff:    "Keep smiling, superstar!",
			Adjectives: []string{"amazing", "incredible", "fantastic", "the best"},
		},
		"de": {
			Greeting:   "Hallo hallo hallo!",
			Signoff:    "Bleib am Lächeln, Superstar!",
			Adjectives: []string{"großartig", "unglaublich", "fantastisch", "der Hammer"},
		},
		"es": {
			Greeting:   "¡Hola, hola, hola!",
			Signoff:    "¡Sigue sonriendo, superestrella!",
			Adjectives: []string{"increíble", "fantástico", "genial", "lo máximo"},
		},
	},
}

var profiles = map[models.Archetype]Profile{
	models.Professor:  ProfessorProfile,
	models.Worrier:    WorrierProfile,
	models.Enthusiast: EnthusiastProfile,
}

// Select returns the profile for an archetype.
func Select(a models.Archetype) (Profile, error) {
	p, ok := profiles[a]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", models.ErrUnknownArchetype, a)
	}
	return p, nil
}

// All returns every profile in archetype order.
func All() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, a := range models.Archetypes() {
		out = append(out, profiles[a])
	}
	return out
}
