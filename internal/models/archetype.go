package models

import (
	"errors"
	"fmt"
	"strings"
)

// Archetype is a named tone profile used to voice generated text.
type Archetype string

const (
	Professor  Archetype = "professor"
	Worrier    Archetype = "worrier"
	Enthusiast Archetype = "enthusiast"
)

// ErrUnknownArchetype is returned when an archetype name is not recognized.
var ErrUnknownArchetype = errors.New("unknown archetype")

// Archetypes lists every archetype in display order.
func Archetypes() []Archetype {
	return []Archetype{Professor, Worrier, Enthusiast}
}

// ParseArchetype accepts archetype names in any case, with surrounding whitespace.
func ParseArchetype(s string) (Archetype, error) {
	a := Archetype(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownArchetype, s)
	}
	return a, nil
}

func (a Archetype) Valid() bool {
	switch a {
	case Professor, Worrier, Enthusiast:
		return true
	}
	return false
}

func (a Archetype) String() string {
	return string(a)
}
