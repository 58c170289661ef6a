// Package services – conversation rule table
//
// The resolver's decision logic is an explicit ordered list of rules, not one
// large branching function. Each rule inspects the turn and either answers
// (terminal) or passes. Rules are evaluated in the fixed order below and the
// first answer wins, which makes the priority of each branch testable in
// isolation.
//
// Order of evaluation:
//  1. greeting            – fixed greeting, takes priority over everything
//  2. location_extract    – never answers; scans tokens for a city/area and
//     persists a hit onto the session (area hits map to their owning city)
//  3. location_gate       – asks for a city when one is required but unknown;
//     no doctor search proceeds past this point without a location
//  4. affirmative         – "yes" after a recommendation: full detail card
//  5. doctor_request      – direct doctor/specialist ask: first match wins
//  6. symptom_specialties – lexicon-derived specialties, up to N doctors
//  7. distress            – generic symptom/pain wording, ask for detail
//  8. city_acknowledged   – city known but nothing else matched
//  9. fallback            – unconditional "tell me more"
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/docline/go-doctor-backend/internal/domain"
	"github.com/docline/go-doctor-backend/internal/repo"
)

// chatRule is one entry of the rule table. handle returns the reply and true
// when the rule answers the turn; (_, false, nil) passes to the next rule.
type chatRule struct {
	name   string
	handle func(s *ChatService, ctx context.Context, t *turn) (string, bool, error)
}

// chatRules is the fixed evaluation order. Exactly one rule answers per turn.
var chatRules = []chatRule{
	{name: "greeting", handle: ruleGreeting},
	{name: "location_extract", handle: ruleLocationExtract},
	{name: "location_gate", handle: ruleLocationGate},
	{name: "affirmative", handle: ruleAffirmative},
	{name: "doctor_request", handle: ruleDoctorRequest},
	{name: "symptom_specialties", handle: ruleSymptomSpecialties},
	{name: "distress", handle: ruleDistress},
	{name: "city_acknowledged", handle: ruleCityAcknowledged},
	{name: "fallback", handle: ruleFallback},
}

// greetingWords, doctorWords, locationInquiryWords, and distressWords are the
// fixed keyword sets the branches match on (lowercase substring containment).
var (
	greetingWords        = []string{"hello", "hi"}
	doctorWords          = []string{"doctor", "specialist"}
	careWords            = []string{"doctor", "specialist", "clinic", "hospital"}
	locationInquiryWords = []string{"where", "location", "city", "area", "near me", "nearby"}
	distressWords        = []string{"symptom", "pain", "sick", "hurt", "ache"}
)

// tokenStopWords are short function words skipped by the location scanner.
// Tokens shorter than three characters are skipped regardless.
var tokenStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "you": {},
	"but": {}, "not": {}, "all": {}, "any": {}, "can": {}, "had": {},
	"has": {}, "have": {}, "her": {}, "his": {}, "him": {}, "she": {},
	"our": {}, "out": {}, "who": {}, "how": {}, "its": {}, "with": {},
	"that": {}, "this": {}, "from": {}, "what": {}, "when": {}, "need": {},
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// --- Rule 1: greeting ---

const greetingReply = "Hello! I'm your doctor-discovery assistant. " +
	"Tell me your symptoms or ask for a specialist, and let me know which city you are in."

// ruleGreeting matches "hello"/"hi" as standalone words, not substrings, so
// that e.g. "this" does not read as a greeting.
func ruleGreeting(_ *ChatService, _ context.Context, t *turn) (string, bool, error) {
	for _, tok := range strings.FieldsFunc(t.lowered, func(r rune) bool {
		return r < 'a' || r > 'z'
	}) {
		for _, g := range greetingWords {
			if tok == g {
				return greetingReply, true, nil
			}
		}
	}
	return "", false, nil
}

// --- Rule 2: location extraction (never terminal) ---

// ruleLocationExtract scans whitespace-split tokens left to right for a known
// city or area. The first hit wins and is persisted onto the session; an area
// hit stores its owning city. It never answers the turn.
func ruleLocationExtract(s *ChatService, ctx context.Context, t *turn) (string, bool, error) {
	for _, tok := range strings.Fields(t.message) {
		tok = strings.Trim(tok, ".,!?;:'\"()")
		if len(tok) < 3 {
			continue
		}
		if _, stop := tokenStopWords[strings.ToLower(tok)]; stop {
			continue
		}
		okCity, err := s.Locations.IsValidCity(ctx, tok)
		if err != nil {
			return "", false, err
		}
		if okCity {
			t.location = canonicalCase(tok)
			t.session.City = t.location
			return "", false, nil
		}
		m, err := s.Locations.ResolveArea(ctx, tok)
		if err != nil {
			return "", false, err
		}
		if m.Valid {
			t.location = m.City
			t.session.City = m.City
			return "", false, nil
		}
	}
	return "", false, nil
}

// --- Rule 3: location gate ---

// ruleLocationGate asks for the city when the turn needs location context and
// none is known. This is a hard gate: no doctor search happens below it
// without a known location.
func ruleLocationGate(s *ChatService, ctx context.Context, t *turn) (string, bool, error) {
	if t.session.City != "" {
		return "", false, nil
	}
	if !s.needsLocationContext(t) {
		return "", false, nil
	}
	cities, err := s.Locations.ListCities(ctx)
	if err != nil {
		return "", false, err
	}
	return fmt.Sprintf(
		"Could you tell me which city you are in? I currently cover: %s.",
		joinCityNames(cities),
	), true, nil
}

// needsLocationContext reports whether the message requires a known location:
// it is a location inquiry, it carries symptom keywords, or it mentions
// doctors/clinics/hospitals.
func (s *ChatService) needsLocationContext(t *turn) bool {
	if containsAny(t.lowered, locationInquiryWords) {
		return true
	}
	if len(t.extractSymptoms(s)) > 0 {
		return true
	}
	return containsAny(t.lowered, careWords)
}

// --- Rule 4: affirmative follow-up ---

// ruleAffirmative expands the last recommendation into a full detail card
// when the user answers exactly "yes". A stale last doctor gets an explicit
// "no longer available" reply rather than falling through to an unrelated
// branch.
func ruleAffirmative(s *ChatService, ctx context.Context, t *turn) (string, bool, error) {
	if strings.TrimSpace(t.lowered) != "yes" || t.session.LastDoctorID == nil {
		return "", false, nil
	}
	d, err := s.Directory.Get(ctx, *t.session.LastDoctorID)
	if err != nil {
		if err == ErrDoctorNotFound {
			t.session.LastDoctorID = nil
			return "I'm sorry, that doctor is no longer available. " +
				"Tell me your symptoms and I'll suggest someone else.", true, nil
		}
		return "", false, err
	}
	t.specialty = d.Specialty
	return doctorDetailCard(d), true, nil
}

// doctorDetailCard renders the expanded doctor card used by the "yes" branch.
func doctorDetailCard(d *domain.Doctor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are the details for %s:\n", d.Name)
	fmt.Fprintf(&b, "Specialty: %s\n", d.Specialty)
	fmt.Fprintf(&b, "Experience: %d years\n", d.Experience)
	fmt.Fprintf(&b, "Rating: %s/5\n", strconv.FormatFloat(d.Rating, 'f', -1, 64))
	fmt.Fprintf(&b, "Location: %s\n", joinNonEmpty(", ", d.Area, d.City))
	fmt.Fprintf(&b, "Consultation fee: %s\n", strconv.FormatFloat(d.ConsultationFee, 'f', -1, 64))
	if len(d.Languages) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(d.Languages, ", "))
	}
	if len(d.Education) > 0 {
		fmt.Fprintf(&b, "Education: %s\n", strings.Join(d.Education, ", "))
	}
	b.WriteString("Would you like to book a consultation?")
	return b.String()
}

// --- Rule 5: direct doctor/specialist request ---

func ruleDoctorRequest(s *ChatService, ctx context.Context, t *turn) (string, bool, error) {
	if !containsAny(t.lowered, doctorWords) {
		return "", false, nil
	}
	avail := true
	doctors, err := s.Directory.List(ctx, repo.DoctorFilter{
		City:      t.session.City,
		Available: &avail,
	})
	if err != nil {
		return "", false, err
	}
	if len(doctors) == 0 {
		if t.session.City != "" {
			cities, err := s.Locations.ListCities(ctx)
			if err != nil {
				return "", false, err
			}
			return fmt.Sprintf(
				"I'm sorry, I couldn't find an available doctor in %s right now. "+
					"Cities I cover: %s.",
				t.session.City, joinCityNames(cities),
			), true, nil
		}
		return "I'm sorry, I couldn't find an available doctor right now.", true, nil
	}
	top := doctors[0]
	t.session.LastDoctorID = &top.ID
	t.specialty = top.Specialty
	return fmt.Sprintf(
		"I recommend %s, %s, with %d years of experience. "+
			"Would you like more details? Just say yes.",
		top.Name, top.Specialty, top.Experience,
	), true, nil
}

// --- Rule 6: symptom-derived specialties ---

func ruleSymptomSpecialties(s *ChatService, ctx context.Context, t *turn) (string, bool, error) {
	symptoms := t.extractSymptoms(s)
	if len(symptoms) == 0 {
		return "", false, nil
	}
	specialties := s.Lexicon.SpecialtiesFor(symptoms)
	if len(specialties) == 0 {
		// The shipped tables always resolve, but a custom lexicon may not.
		return fmt.Sprintf(
			"I understand you're experiencing %s. Could you tell me a bit more about "+
				"how you're feeling? A %s consultation is a good starting point.",
			joinHuman(symptoms), s.Lexicon.DefaultSpecialtyName(),
		), true, nil
	}
	t.specialty = specialties[0]

	// One directory query per derived specialty; union the results and
	// deduplicate by doctor id, first seen wins.
	avail := true
	var found []domain.Doctor
	seen := make(map[string]struct{})
	for _, sp := range specialties {
		doctors, err := s.Directory.List(ctx, repo.DoctorFilter{
			Specialty: sp,
			City:      t.session.City,
			Available: &avail,
		})
		if err != nil {
			return "", false, err
		}
		for _, d := range doctors {
			if _, dup := seen[d.ID]; dup {
				continue
			}
			seen[d.ID] = struct{}{}
			found = append(found, d)
		}
	}

	if len(found) == 0 {
		return fmt.Sprintf(
			"Based on your symptoms (%s), I'd recommend seeing a specialist in: %s. "+
				"Unfortunately I couldn't find an available doctor right now.",
			joinHuman(symptoms), strings.Join(specialties, ", "),
		), true, nil
	}

	max := s.MaxDoctorsListed
	if max <= 0 {
		max = 3
	}
	if len(found) > max {
		found = found[:max]
	}
	t.session.LastDoctorID = &found[0].ID

	var b strings.Builder
	fmt.Fprintf(&b, "Based on your symptoms (%s), I'd recommend seeing a specialist in: %s.\n",
		joinHuman(symptoms), strings.Join(specialties, ", "))
	b.WriteString("Here are some doctors you could consult:\n")
	for i, d := range found {
		fmt.Fprintf(&b, "%d. %s (%s) - %d years of experience, %s\n",
			i+1, d.Name, d.Specialty, d.Experience, d.City)
	}
	b.WriteString("Would you like to book a consultation? Say yes for details on the first one.")
	return b.String(), true, nil
}

// extractSymptoms runs the lexicon once per turn and caches the result on the
// turn (the gate and the symptom rule both need it).
func (t *turn) extractSymptoms(s *ChatService) []string {
	if t.symptoms == nil {
		if found := s.Lexicon.ExtractSymptoms(t.message); len(found) > 0 {
			t.symptoms = found
		} else {
			t.symptoms = []string{}
		}
	}
	return t.symptoms
}

// --- Rule 7: generic distress keywords ---

func ruleDistress(_ *ChatService, _ context.Context, t *turn) (string, bool, error) {
	if !containsAny(t.lowered, distressWords) {
		return "", false, nil
	}
	if t.session.City != "" {
		return fmt.Sprintf(
			"I'm sorry you're not feeling well. Could you describe your symptoms in "+
				"more detail so I can suggest the right specialist in %s?",
			t.session.City,
		), true, nil
	}
	return "I'm sorry you're not feeling well. Could you describe your symptoms in more detail?", true, nil
}

// --- Rule 8: location acknowledgment ---

func ruleCityAcknowledged(_ *ChatService, _ context.Context, t *turn) (string, bool, error) {
	if t.session.City == "" {
		return "", false, nil
	}
	return fmt.Sprintf(
		"Thanks! You're in %s. You can describe your symptoms or ask me for a doctor.",
		t.session.City,
	), true, nil
}

// --- Rule 9: fallback ---

func ruleFallback(_ *ChatService, _ context.Context, _ *turn) (string, bool, error) {
	return "I'm here to help you find a doctor. Could you tell me more about what you're looking for?", true, nil
}

// --- small text helpers ---

// canonicalCase renders a matched token the way city names are displayed.
func canonicalCase(tok string) string {
	return cases.Title(language.English).String(strings.ToLower(tok))
}

// joinCityNames renders "Pune, Mumbai, Delhi" from a city slice.
func joinCityNames(cities []domain.City) string {
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

// joinHuman joins items with commas and a final "and".
func joinHuman(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
