// Package lexicon provides the static symptom and specialty mapping tables
// used by the conversation resolver. It is intentionally small and
// dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Clear, documented types and functional options (Option pattern)
//   - Immutable, read-only tables after construction (safe for concurrent use)
//   - Deterministic extraction: symptoms come back in first-seen message
//     order, specialties in first-seen registration order
//
// A phrase variant ("head ache", "migraine") maps to one canonical symptom
// ("headache"); a canonical symptom maps to an ordered list of candidate
// specialties. Matching is case-insensitive substring containment, the same
// contract the upstream chat pipeline has always used. There is no fuzzy or
// stemmed matching.
package lexicon

import (
	"sort"
	"strings"
)

// DefaultSpecialty is the fallback recommended when extracted symptoms
// resolve to no configured specialty.
const DefaultSpecialty = "General Medicine"

// ----------------------------------------------------------------------------
// Options

// Option mutates the construction-time configuration of a Lexicon.
type Option func(*builder)

type entry struct {
	variant   string // lowercased phrase searched for in the message
	canonical string // canonical symptom the variant maps to
	order     int    // registration order, used as a deterministic tie-break
}

type builder struct {
	entries          []entry
	specialties      map[string][]string
	canonicalOrder   []string
	defaultSpecialty string
}

// WithSymptom registers a canonical symptom, its phrase variants, and the
// candidate specialties it maps to. Registering the same canonical symptom
// twice appends variants and specialties (duplicates are dropped, order of
// first registration wins).
func WithSymptom(canonical string, variants []string, specialties []string) Option {
	return func(b *builder) {
		canonical = strings.ToLower(strings.TrimSpace(canonical))
		if canonical == "" {
			return
		}
		if _, ok := b.specialties[canonical]; !ok {
			b.specialties[canonical] = nil
			b.canonicalOrder = append(b.canonicalOrder, canonical)
		}
		seen := make(map[string]struct{})
		for _, e := range b.entries {
			if e.canonical == canonical {
				seen[e.variant] = struct{}{}
			}
		}
		for _, v := range variants {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			b.entries = append(b.entries, entry{variant: v, canonical: canonical, order: len(b.entries)})
		}
		have := make(map[string]struct{}, len(b.specialties[canonical]))
		for _, s := range b.specialties[canonical] {
			have[s] = struct{}{}
		}
		for _, s := range specialties {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if _, dup := have[s]; dup {
				continue
			}
			have[s] = struct{}{}
			b.specialties[canonical] = append(b.specialties[canonical], s)
		}
	}
}

// WithDefaultSpecialty overrides the fallback specialty returned when no
// configured specialty can be derived.
func WithDefaultSpecialty(s string) Option {
	return func(b *builder) {
		if s = strings.TrimSpace(s); s != "" {
			b.defaultSpecialty = s
		}
	}
}

// ----------------------------------------------------------------------------
// Lexicon

// Lexicon holds the immutable mapping tables. Construct with New or Default;
// the zero value matches nothing.
type Lexicon struct {
	entries          []entry
	specialties      map[string][]string
	defaultSpecialty string
}

// New builds a Lexicon from the given options. The result is read-only and
// safe for concurrent use.
func New(opts ...Option) *Lexicon {
	b := &builder{
		specialties:      make(map[string][]string),
		defaultSpecialty: DefaultSpecialty,
	}
	for _, o := range opts {
		o(b)
	}
	return &Lexicon{
		entries:          b.entries,
		specialties:      b.specialties,
		defaultSpecialty: b.defaultSpecialty,
	}
}

// ExtractSymptoms scans the message for any known phrase variant and returns
// the canonical symptoms in first-seen order (position of the earliest
// matching variant in the message), deduplicated. An empty slice means no
// symptom matched.
func (l *Lexicon) ExtractSymptoms(message string) []string {
	if l == nil || len(l.entries) == 0 {
		return nil
	}
	msg := strings.ToLower(message)
	if strings.TrimSpace(msg) == "" {
		return nil
	}

	type hit struct {
		pos       int
		order     int
		canonical string
	}
	var hits []hit
	for _, e := range l.entries {
		if pos := strings.Index(msg, e.variant); pos >= 0 {
			hits = append(hits, hit{pos: pos, order: e.order, canonical: e.canonical})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].order < hits[j].order
	})

	out := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.canonical]; dup {
			continue
		}
		seen[h.canonical] = struct{}{}
		out = append(out, h.canonical)
	}
	return out
}

// SpecialtiesFor returns the union of the candidate specialties configured
// for the given canonical symptoms, deduplicated, order = first seen. Unknown
// symptoms contribute nothing. An empty result for a non-empty symptom list
// means the caller should fall back to DefaultSpecialtyName.
func (l *Lexicon) SpecialtiesFor(symptoms []string) []string {
	if l == nil || len(symptoms) == 0 {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, sym := range symptoms {
		for _, sp := range l.specialties[strings.ToLower(strings.TrimSpace(sym))] {
			if _, dup := seen[sp]; dup {
				continue
			}
			seen[sp] = struct{}{}
			out = append(out, sp)
		}
	}
	return out
}

// DefaultSpecialtyName returns the configured fallback specialty.
func (l *Lexicon) DefaultSpecialtyName() string {
	if l == nil || l.defaultSpecialty == "" {
		return DefaultSpecialty
	}
	return l.defaultSpecialty
}

// Knows reports whether the canonical symptom is configured.
func (l *Lexicon) Knows(symptom string) bool {
	if l == nil {
		return false
	}
	_, ok := l.specialties[strings.ToLower(strings.TrimSpace(symptom))]
	return ok
}
