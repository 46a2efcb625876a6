package models

import "time"

// Mode selects which kind of subject a render request refers to.
type Mode string

const (
	ModeTopic Mode = "topic"
	ModeCity  Mode = "city"
)

// RenderRequest describes one piece of content to render.
type RenderRequest struct {
	Archetype Archetype `json:"archetype"`
	Language  string    `json:"language"`
	Subject   string    `json:"subject"` // topic or city key
	Mode      Mode      `json:"mode"`
	Date      time.Time `json:"date,omitempty"`
}

// Rendered is the output of a render call.
type Rendered struct {
	Archetype Archetype `json:"archetype"`
	Language  string    `json:"language"`
	Mode      Mode      `json:"mode"`
	Subject   string    `json:"subject"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Fallback  bool      `json:"fallback,omitempty"`
	Enhanced  bool      `json:"enhanced,omitempty"`
}
