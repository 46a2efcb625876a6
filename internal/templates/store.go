// Package templates holds the static message tables: per-archetype message
// bodies and the topic and city catalogs they are filled from.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/BerylCAtieno/umaja/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// Slot names available to every message body.
const (
	SlotGreeting  = "greeting"
	SlotSignoff   = "signoff"
	SlotAdjective = "adjective"
	SlotSubject   = "subject"
	SlotDetail    = "detail"
	SlotCountry   = "country"
	SlotDate      = "date"
)

// Localized is one catalog entry in one language.
type Localized struct {
	Name    string `yaml:"name" json:"name"`
	Detail  string `yaml:"detail" json:"detail"`
	Country string `yaml:"country,omitempty" json:"country,omitempty"`
}

// Subject is a topic or city with its translations.
type Subject struct {
	Key     string               `json:"key"`
	Locales map[string]Localized `json:"locales"`
}

// In returns the entry for lang.
func (s Subject) In(lang string) (Localized, bool) {
	l, ok := s.Locales[lang]
	return l, ok
}

// ConfigurationError reports a hole or defect in the template tables.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("template configuration %s: %s", e.Key, e.Reason)
}

// document is the on-disk shape of a data file. Files are merged in name order.
type document struct {
	DefaultLanguage string                                  `yaml:"default_language"`
	Languages       []string                                `yaml:"languages"`
	Templates       map[string]map[string]map[string]string `yaml:"templates"`
	Topics          map[string]map[string]Localized         `yaml:"topics"`
	Cities          map[string]map[string]Localized         `yaml:"cities"`
}

// Store is the loaded template table. It is read-only after Load returns.
type Store struct {
	defaultLanguage string
	languages       []string
	bodies          map[models.Archetype]map[string]map[models.Mode]*template.Template
	topics          map[string]Subject
	cities          map[string]Subject
	topicKeys       []string
	cityKeys        []string
}

// Load reads the tables compiled into the binary.
func Load() (*Store, error) {
	return LoadFS(embedded, "data")
}

// LoadDir reads every *.yaml file in dir.
func LoadDir(dir string) (*Store, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS reads every *.yaml file under root in fsys.
func LoadFS(fsys fs.FS, root string) (*Store, error) {
	files, err := fs.Glob(fsys, path.Join(root, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}
	if len(files) == 0 {
		return nil, &ConfigurationError{Key: root, Reason: "no template files"}
	}
	sort.Strings(files)

	s := &Store{
		bodies: make(map[models.Archetype]map[string]map[models.Mode]*template.Template),
		topics: make(map[string]Subject),
		cities: make(map[string]Subject),
	}

	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		var doc document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if err := s.merge(doc); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	s.topicKeys = sortedKeys(s.topics)
	s.cityKeys = sortedKeys(s.cities)
	return s, nil
}

func (s *Store) merge(doc document) error {
	if doc.DefaultLanguage != "" {
		s.defaultLanguage = doc.DefaultLanguage
	}
	if len(doc.Languages) > 0 {
		s.languages = doc.Languages
	}

	for name, langs := range doc.Templates {
		archetype, err := models.ParseArchetype(name)
		if err != nil {
			return &ConfigurationError{Key: name, Reason: err.Error()}
		}
		if s.bodies[archetype] == nil {
			s.bodies[archetype] = make(map[string]map[models.Mode]*template.Template)
		}
		for lang, modes := range langs {
			if s.bodies[archetype][lang] == nil {
				s.bodies[archetype][lang] = make(map[models.Mode]*template.Template)
			}
			for mode, body := range modes {
				key := strings.Join([]string{name, lang, mode}, "/")
				m := models.Mode(mode)
				if m != models.ModeTopic && m != models.ModeCity {
					return &ConfigurationError{Key: key, Reason: "unknown mode"}
				}
				tmpl, err := template.New(key).Option("missingkey=error").Parse(body)
				if err != nil {
					return &ConfigurationError{Key: key, Reason: err.Error()}
				}
				s.bodies[archetype][lang][m] = tmpl
			}
		}
	}

	for key, locales := range doc.Topics {
		s.topics[key] = Subject{Key: key, Locales: locales}
	}
	for key, locales := range doc.Cities {
		s.cities[key] = Subject{Key: key, Locales: locales}
	}
	return nil
}

// DefaultLanguage is the language callers fall back to.
func (s *Store) DefaultLanguage() string { return s.defaultLanguage }

// Languages lists the supported language codes.
func (s *Store) Languages() []string {
	return append([]string(nil), s.languages...)
}

// SupportsLanguage reports whether lang is one of the configured languages.
func (s *Store) SupportsLanguage(lang string) bool {
	for _, l := range s.languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Template returns the message body for an archetype, language and mode.
func (s *Store) Template(a models.Archetype, lang string, mode models.Mode) (*template.Template, bool) {
	tmpl, ok := s.bodies[a][lang][mode]
	return tmpl, ok
}

// Topic returns the topic with the exact catalog key.
func (s *Store) Topic(key string) (Subject, bool) {
	t, ok := s.topics[key]
	return t, ok
}

// City returns the city with the exact catalog key.
func (s *Store) City(key string) (Subject, bool) {
	c, ok := s.cities[key]
	return c, ok
}

// LookupTopic resolves free text ("AI ethics", "ai-ethics", "KI-Ethik")
// to a topic.
func (s *Store) LookupTopic(text string) (Subject, bool) {
	return lookup(s.topics, s.topicKeys, text)
}

// LookupCity resolves free text ("New York", "new-york", "Nueva York") to a city.
func (s *Store) LookupCity(text string) (Subject, bool) {
	return lookup(s.cities, s.cityKeys, text)
}

// Subject resolves text in the catalog selected by mode.
func (s *Store) Subject(mode models.Mode, text string) (Subject, bool) {
	if mode == models.ModeCity {
		return s.LookupCity(text)
	}
	return s.LookupTopic(text)
}

// Topics returns all topics ordered by key.
func (s *Store) Topics() []Subject {
	out := make([]Subject, 0, len(s.topicKeys))
	for _, k := range s.topicKeys {
		out = append(out, s.topics[k])
	}
	return out
}

// Cities returns all cities ordered by key.
func (s *Store) Cities() []Subject {
	out := make([]Subject, 0, len(s.cityKeys))
	for _, k := range s.cityKeys {
		out = append(out, s.cities[k])
	}
	return out
}

// Triple is one resolvable (archetype, language, subject) combination.
type Triple struct {
	Archetype models.Archetype
	Language  string
	Mode      models.Mode
	Subject   string
}

// Matrix enumerates every combination the tables can render.
func (s *Store) Matrix() []Triple {
	var out []Triple
	for _, a := range models.Archetypes() {
		for _, lang := range s.languages {
			for _, mode := range []models.Mode{models.ModeTopic, models.ModeCity} {
				if _, ok := s.Template(a, lang, mode); !ok {
					continue
				}
				keys, catalog := s.topicKeys, s.topics
				if mode == models.ModeCity {
					keys, catalog = s.cityKeys, s.cities
				}
				for _, k := range keys {
					if _, ok := catalog[k].In(lang); ok {
						out = append(out, Triple{Archetype: a, Language: lang, Mode: mode, Subject: k})
					}
				}
			}
		}
	}
	return out
}

// Validate checks that the tables are complete: every archetype has both
// bodies in every language, every catalog entry is translated, and every
// body only uses known slots. All problems are reported together.
func (s *Store) Validate() error {
	var errs []error

	if len(s.languages) == 0 {
		errs = append(errs, &ConfigurationError{Key: "languages", Reason: "no languages configured"})
	}
	if !s.SupportsLanguage(s.defaultLanguage) {
		errs = append(errs, &ConfigurationError{Key: "default_language", Reason: fmt.Sprintf("%q is not a supported language", s.defaultLanguage)})
	}

	sample := map[string]string{
		SlotGreeting: "g", SlotSignoff: "s", SlotAdjective: "a",
		SlotSubject: "x", SlotDetail: "d", SlotCountry: "c", SlotDate: "t",
	}

	for _, a := range models.Archetypes() {
		for _, lang := range s.languages {
			for _, mode := range []models.Mode{models.ModeTopic, models.ModeCity} {
				key := fmt.Sprintf("%s/%s/%s", a, lang, mode)
				tmpl, ok := s.Template(a, lang, mode)
				if !ok {
					errs = append(errs, &ConfigurationError{Key: key, Reason: "missing template"})
					continue
				}
				var b strings.Builder
				if err := tmpl.Execute(&b, sample); err != nil {
					errs = append(errs, &ConfigurationError{Key: key, Reason: err.Error()})
				}
			}
		}
	}

	errs = append(errs, checkCatalog("topic", s.topics, s.languages, false)...)
	errs = append(errs, checkCatalog("city", s.cities, s.languages, true)...)

	return errors.Join(errs...)
}

func checkCatalog(kind string, catalog map[string]Subject, languages []string, needCountry bool) []error {
	var errs []error
	if len(catalog) == 0 {
		errs = append(errs, &ConfigurationError{Key: kind, Reason: "catalog is empty"})
	}
	for _, key := range sortedKeys(catalog) {
		for _, lang := range languages {
			l, ok := catalog[key].In(lang)
			name := fmt.Sprintf("%s %s/%s", kind, key, lang)
			switch {
			case !ok:
				errs = append(errs, &ConfigurationError{Key: name, Reason: "missing translation"})
			case l.Name == "" || l.Detail == "":
				errs = append(errs, &ConfigurationError{Key: name, Reason: "name and detail are required"})
			case needCountry && l.Country == "":
				errs = append(errs, &ConfigurationError{Key: name, Reason: "country is required"})
			}
		}
	}
	return errs
}

func lookup(catalog map[string]Subject, keys []string, text string) (Subject, bool) {
	needle := normalize(text)
	if needle == "" {
		return Subject{}, false
	}
	if s, ok := catalog[needle]; ok {
		return s, true
	}
	for _, k := range keys {
		for _, l := range catalog[k].Locales {
			if normalize(l.Name) == needle {
				return catalog[k], true
			}
		}
	}
	return Subject{}, false
}

// normalize folds case and separators so "AI Ethics", "ai_ethics" and
// "ai-ethics" compare equal.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "-")
}

func sortedKeys(m map[string]Subject) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
