package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/docline/go-doctor-backend/internal/domain"
	"github.com/docline/go-doctor-backend/internal/lexicon"
	"github.com/docline/go-doctor-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&domain.City{}, &domain.Area{}, &domain.Doctor{},
		&domain.ChatSession{}, &domain.ChatMessage{}, &domain.Feedback{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ----- Fake directory -----

type fakeDirectory struct {
	doctors   []domain.Doctor
	listCalls []repo.DoctorFilter
	listErr   error
	getErr    error
}

func (f *fakeDirectory) List(_ context.Context, filter repo.DoctorFilter) ([]domain.Doctor, error) {
	f.listCalls = append(f.listCalls, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Doctor
	for _, d := range f.doctors {
		if filter.Specialty != "" && d.Specialty != filter.Specialty {
			continue
		}
		if filter.City != "" && d.City != filter.City {
			continue
		}
		if filter.Available != nil && d.Available != *filter.Available {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDirectory) Get(_ context.Context, id string) (*domain.Doctor, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.doctors {
		if f.doctors[i].ID == id {
			return &f.doctors[i], nil
		}
	}
	return nil, ErrDoctorNotFound
}

// ----- Fake locations -----

type fakeLocations struct {
	cities []string          // display order
	areas  map[string]string // lowered area name -> owning city
}

func (f *fakeLocations) IsValidCity(_ context.Context, token string) (bool, error) {
	for _, c := range f.cities {
		if strings.EqualFold(c, strings.TrimSpace(token)) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLocations) ResolveArea(_ context.Context, token string) (AreaMatch, error) {
	if city, ok := f.areas[strings.ToLower(strings.TrimSpace(token))]; ok {
		return AreaMatch{Valid: true, City: city}, nil
	}
	return AreaMatch{}, nil
}

func (f *fakeLocations) ListCities(_ context.Context) ([]domain.City, error) {
	out := make([]domain.City, 0, len(f.cities))
	for _, c := range f.cities {
		out = append(out, domain.City{ID: uuid.NewString(), Name: c})
	}
	return out, nil
}

func newTestChatService(t *testing.T, dir *fakeDirectory, loc *fakeLocations) *ChatService {
	t.Helper()
	if dir == nil {
		dir = &fakeDirectory{}
	}
	if loc == nil {
		loc = &fakeLocations{cities: []string{"Pune", "Mumbai"}}
	}
	return NewChatService(newServiceDB(t), dir, loc, lexicon.Default())
}

// ----- Validation -----

func TestProcessMessage_EmptyMessage(t *testing.T) {
	s := newTestChatService(t, nil, nil)
	for _, in := range []string{"", "   ", "\n\t"} {
		if _, err := s.ProcessMessage(context.Background(), "", in); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("ProcessMessage(%q) err = %v; want ErrEmptyMessage", in, err)
		}
	}
}

func TestProcessMessage_TooLong_CountsRunes(t *testing.T) {
	s := newTestChatService(t, nil, nil)
	s.MaxMessageRunes = 5

	if _, err := s.ProcessMessage(context.Background(), "", "ααααα"); err != nil {
		t.Fatalf("5 runes should pass: %v", err)
	}
	if _, err := s.ProcessMessage(context.Background(), "", "αααααα"); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("6 runes: err = %v; want ErrMessageTooLong", err)
	}
}

func TestProcessMessage_GeneratesSessionID(t *testing.T) {
	s := newTestChatService(t, nil, nil)

	m, err := s.ProcessMessage(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if _, err := uuid.Parse(m.SessionID); err != nil {
		t.Fatalf("generated session id %q is not a UUID: %v", m.SessionID, err)
	}
	if _, err := repo.GetSession(context.Background(), s.DB, m.SessionID); err != nil {
		t.Fatalf("session row not created: %v", err)
	}
}

func TestProcessMessage_AppendsLogEntryEveryTurn(t *testing.T) {
	s := newTestChatService(t, nil, nil)
	sid := uuid.NewString()

	for _, in := range []string{"hello", "gibberish input", "I am in Pune"} {
		if _, err := s.ProcessMessage(context.Background(), sid, in); err != nil {
			t.Fatalf("ProcessMessage(%q): %v", in, err)
		}
	}
	n, err := repo.CountMessages(s.DB, sid)
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if n != 3 {
		t.Fatalf("log entries = %d; want 3", n)
	}
}

// ----- Greeting -----

func TestProcessMessage_Greeting_MatchesWholeWordsOnly(t *testing.T) {
	s := newTestChatService(t, nil, nil)

	m, err := s.ProcessMessage(context.Background(), "", "Hello there")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if m.Response != greetingReply {
		t.Fatalf("response = %q; want greeting", m.Response)
	}

	// "this is highly unusual" contains "hi" only as a substring and must
	// not greet; with no other signal it falls through to the fallback.
	m, err = s.ProcessMessage(context.Background(), "", "this is highly unusual")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if m.Response == greetingReply {
		t.Fatalf("substring 'hi' must not trigger the greeting")
	}
	if !strings.Contains(m.Response, "tell me more") {
		t.Fatalf("expected fallback, got %q", m.Response)
	}
}

func TestProcessMessage_Greeting_BeatsSymptoms(t *testing.T) {
	s := newTestChatService(t, nil, nil)

	m, err := s.ProcessMessage(context.Background(), "", "Hi, I have a headache")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if m.Response != greetingReply {
		t.Fatalf("greeting should win over the symptom branch, got %q", m.Response)
	}
}

// ----- Location gate -----

func TestProcessMessage_LocationGate_AsksForCity(t *testing.T) {
	dir := &fakeDirectory{}
	s := newTestChatService(t, dir, &fakeLocations{cities: []string{"Pune", "Mumbai", "Delhi"}})

	m, err := s.ProcessMessage(context.Background(), "", "I have a headache")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "which city") {
		t.Fatalf("expected city prompt, got %q", m.Response)
	}
	if !strings.Contains(m.Response, "Pune, Mumbai, Delhi") {
		t.Fatalf("expected covered cities list, got %q", m.Response)
	}
	// The gate must answer before any doctor lookup.
	if len(dir.listCalls) != 0 {
		t.Fatalf("directory queried %d times behind the gate; want 0", len(dir.listCalls))
	}
}

func TestProcessMessage_LocationGate_DoctorAskWithoutCity(t *testing.T) {
	s := newTestChatService(t, nil, nil)

	m, err := s.ProcessMessage(context.Background(), "", "I need a doctor")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "which city") {
		t.Fatalf("doctor ask without a city must hit the gate, got %q", m.Response)
	}
}

// ----- Location extraction -----

func TestProcessMessage_CityExtracted_AndAcknowledged(t *testing.T) {
	s := newTestChatService(t, nil, nil)
	sid := uuid.NewString()

	m, err := s.ProcessMessage(context.Background(), sid, "I am in pune")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "You're in Pune") {
		t.Fatalf("expected acknowledgment, got %q", m.Response)
	}
	if m.Location != "Pune" {
		t.Fatalf("log Location = %q; want canonical Pune", m.Location)
	}
	sess, err := repo.GetSession(context.Background(), s.DB, sid)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.City != "Pune" {
		t.Fatalf("session City = %q; want Pune", sess.City)
	}

	// Re-stating the same city is a no-op acknowledgment.
	m, err = s.ProcessMessage(context.Background(), sid, "Pune!")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "You're in Pune") {
		t.Fatalf("expected acknowledgment on repeat, got %q", m.Response)
	}
}

func TestProcessMessage_AreaMapsToOwningCity(t *testing.T) {
	loc := &fakeLocations{
		cities: []string{"Pune", "Mumbai"},
		areas:  map[string]string{"kothrud": "Pune"},
	}
	s := newTestChatService(t, nil, loc)
	sid := uuid.NewString()

	m, err := s.ProcessMessage(context.Background(), sid, "I live in Kothrud")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "You're in Pune") {
		t.Fatalf("area hit should acknowledge the owning city, got %q", m.Response)
	}
	sess, _ := repo.GetSession(context.Background(), s.DB, sid)
	if sess.City != "Pune" {
		t.Fatalf("session City = %q; want Pune", sess.City)
	}
}

// ----- Doctor request -----

func testDoctors() []domain.Doctor {
	return []domain.Doctor{
		{ID: "d1", Name: "Dr. Asha Kulkarni", Specialty: "Neurology", City: "Pune", Experience: 12, Rating: 4.8, ConsultationFee: 700, Available: true},
		{ID: "d2", Name: "Dr. Rohan Deshmukh", Specialty: "General Medicine", City: "Pune", Experience: 8, Rating: 4.2, ConsultationFee: 400, Available: true},
		{ID: "d3", Name: "Dr. Meera Iyer", Specialty: "Internal Medicine", City: "Pune", Experience: 15, Rating: 4.6, ConsultationFee: 800, Available: true},
		{ID: "d4", Name: "Dr. Vikram Shah", Specialty: "Neurology", City: "Mumbai", Experience: 9, Rating: 4.0, ConsultationFee: 600, Available: true},
	}
}

func TestProcessMessage_DoctorRequest_RecommendsAndRemembers(t *testing.T) {
	dir := &fakeDirectory{doctors: testDoctors()}
	s := newTestChatService(t, dir, nil)
	sid := uuid.NewString()

	if _, err := s.ProcessMessage(context.Background(), sid, "Pune"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	m, err := s.ProcessMessage(context.Background(), sid, "I need a doctor")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "Dr. Asha Kulkarni") || !strings.Contains(m.Response, "Just say yes") {
		t.Fatalf("expected one-line recommendation, got %q", m.Response)
	}

	last := dir.listCalls[len(dir.listCalls)-1]
	if last.City != "Pune" || last.Available == nil || !*last.Available {
		t.Fatalf("filter = %+v; want City=Pune Available=true", last)
	}

	sess, _ := repo.GetSession(context.Background(), s.DB, sid)
	if sess.LastDoctorID == nil || *sess.LastDoctorID != "d1" {
		t.Fatalf("LastDoctorID = %v; want d1", sess.LastDoctorID)
	}
}

func TestProcessMessage_DoctorRequest_NoneAvailable(t *testing.T) {
	dir := &fakeDirectory{} // empty directory
	s := newTestChatService(t, dir, &fakeLocations{cities: []string{"Pune", "Mumbai"}})
	sid := uuid.NewString()

	if _, err := s.ProcessMessage(context.Background(), sid, "Mumbai"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	m, err := s.ProcessMessage(context.Background(), sid, "find me a specialist")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "couldn't find an available doctor in Mumbai") {
		t.Fatalf("expected apology with city, got %q", m.Response)
	}
	if !strings.Contains(m.Response, "Cities I cover: Pune, Mumbai") {
		t.Fatalf("expected covered cities, got %q", m.Response)
	}
}

// ----- Affirmative follow-up -----

func TestProcessMessage_Yes_ExpandsDetailCard(t *testing.T) {
	dir := &fakeDirectory{doctors: []domain.Doctor{{
		ID: "d1", Name: "Dr. Asha Kulkarni", Specialty: "Neurology", Area: "Kothrud", City: "Pune",
		Experience: 12, Rating: 4.8, ConsultationFee: 700, Available: true,
		Languages: domain.StringList{"English", "Marathi"},
		Education: domain.StringList{"MBBS", "MD"},
	}}}
	s := newTestChatService(t, dir, nil)
	sid := uuid.NewString()

	if _, err := s.ProcessMessage(context.Background(), sid, "Pune"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	if _, err := s.ProcessMessage(context.Background(), sid, "I need a doctor"); err != nil {
		t.Fatalf("recommend: %v", err)
	}

	m, err := s.ProcessMessage(context.Background(), sid, " YES ")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	for _, want := range []string{
		"details for Dr. Asha Kulkarni",
		"Specialty: Neurology",
		"Experience: 12 years",
		"Rating: 4.8/5",
		"Location: Kothrud, Pune",
		"Consultation fee: 700",
		"Languages: English, Marathi",
		"Education: MBBS, MD",
		"book a consultation",
	} {
		if !strings.Contains(m.Response, want) {
			t.Fatalf("detail card missing %q:\n%s", want, m.Response)
		}
	}
	if m.Specialty != "Neurology" {
		t.Fatalf("log Specialty = %q; want Neurology", m.Specialty)
	}
}

func TestProcessMessage_Yes_WithoutRecommendation_FallsThrough(t *testing.T) {
	s := newTestChatService(t, nil, nil)

	m, err := s.ProcessMessage(context.Background(), "", "yes")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if strings.Contains(m.Response, "details for") {
		t.Fatalf("no recommendation on record, must not expand: %q", m.Response)
	}
}

func TestProcessMessage_Yes_StaleDoctorClearsState(t *testing.T) {
	dir := &fakeDirectory{doctors: testDoctors()}
	s := newTestChatService(t, dir, nil)
	sid := uuid.NewString()

	if _, err := s.ProcessMessage(context.Background(), sid, "Pune"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	if _, err := s.ProcessMessage(context.Background(), sid, "I need a doctor"); err != nil {
		t.Fatalf("recommend: %v", err)
	}

	// The recommended doctor disappears before the follow-up.
	dir.getErr = ErrDoctorNotFound
	m, err := s.ProcessMessage(context.Background(), sid, "yes")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "no longer available") {
		t.Fatalf("expected stale-doctor reply, got %q", m.Response)
	}
	sess, _ := repo.GetSession(context.Background(), s.DB, sid)
	if sess.LastDoctorID != nil {
		t.Fatalf("LastDoctorID should be cleared, got %v", *sess.LastDoctorID)
	}
}

// ----- Symptom specialties -----

func TestProcessMessage_Symptoms_UnionDedupAndCap(t *testing.T) {
	dir := &fakeDirectory{doctors: testDoctors()}
	s := newTestChatService(t, dir, nil)
	s.MaxDoctorsListed = 2
	sid := uuid.NewString()

	if _, err := s.ProcessMessage(context.Background(), sid, "Pune"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	m, err := s.ProcessMessage(context.Background(), sid, "I have a headache and fever")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "headache and fever") {
		t.Fatalf("expected human-joined symptoms, got %q", m.Response)
	}
	// Union of specialties across both symptoms, first seen wins.
	if !strings.Contains(m.Response, "Neurology, General Medicine, Internal Medicine") {
		t.Fatalf("expected specialty union, got %q", m.Response)
	}
	// Cap applies: three Pune doctors match but only two are listed.
	if !strings.Contains(m.Response, "1. Dr. Asha Kulkarni") || !strings.Contains(m.Response, "2. Dr. Rohan Deshmukh") {
		t.Fatalf("expected the first two doctors, got %q", m.Response)
	}
	if strings.Contains(m.Response, "Dr. Meera Iyer") {
		t.Fatalf("cap of 2 exceeded: %q", m.Response)
	}

	if got, want := m.Symptoms, (domain.StringList{"headache", "fever"}); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("log Symptoms = %v; want %v", got, want)
	}
	sess, _ := repo.GetSession(context.Background(), s.DB, sid)
	if sess.LastDoctorID == nil || *sess.LastDoctorID != "d1" {
		t.Fatalf("LastDoctorID = %v; want first listed doctor d1", sess.LastDoctorID)
	}
}

func TestProcessMessage_Symptoms_NoDoctorsAvailable(t *testing.T) {
	dir := &fakeDirectory{} // nobody matches
	s := newTestChatService(t, dir, nil)
	sid := uuid.NewString()

	if _, err := s.ProcessMessage(context.Background(), sid, "Pune"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	m, err := s.ProcessMessage(context.Background(), sid, "terrible skin rash")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "Dermatology") {
		t.Fatalf("expected derived specialty, got %q", m.Response)
	}
	if !strings.Contains(m.Response, "couldn't find an available doctor") {
		t.Fatalf("expected apology, got %q", m.Response)
	}
}

func TestProcessMessage_Symptoms_UnmappedLexiconFallsBackToDefault(t *testing.T) {
	// Custom lexicon with a symptom that resolves to no specialty.
	lex := lexicon.New(lexicon.WithSymptom("hiccups", []string{"hiccups"}, nil))
	s := NewChatService(newServiceDB(t), &fakeDirectory{}, &fakeLocations{cities: []string{"Pune"}}, lex)
	sid := uuid.NewString()

	if _, err := s.ProcessMessage(context.Background(), sid, "Pune"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	m, err := s.ProcessMessage(context.Background(), sid, "I have hiccups")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, lexicon.DefaultSpecialty) {
		t.Fatalf("expected default-specialty fallback, got %q", m.Response)
	}
}

// ----- Distress and fallback -----

func TestProcessMessage_Distress(t *testing.T) {
	s := newTestChatService(t, nil, nil)
	sid := uuid.NewString()

	// Without a known city the distress wording has no city mention.
	m, err := s.ProcessMessage(context.Background(), sid, "I feel so sick")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "describe your symptoms") || strings.Contains(m.Response, "Pune") {
		t.Fatalf("expected generic distress reply, got %q", m.Response)
	}

	if _, err := s.ProcessMessage(context.Background(), sid, "Pune"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	m, err = s.ProcessMessage(context.Background(), sid, "I feel so sick")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "right specialist in Pune") {
		t.Fatalf("expected city-aware distress reply, got %q", m.Response)
	}
}

func TestProcessMessage_Fallback(t *testing.T) {
	s := newTestChatService(t, nil, nil)

	m, err := s.ProcessMessage(context.Background(), "", "what is the meaning of life")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(m.Response, "help you find a doctor") {
		t.Fatalf("expected fallback, got %q", m.Response)
	}
}

// ----- Error propagation -----

func TestProcessMessage_DirectoryErrorPropagates(t *testing.T) {
	boom := errors.New("directory down")
	dir := &fakeDirectory{listErr: boom}
	s := newTestChatService(t, dir, nil)
	sid := uuid.NewString()

	if _, err := s.ProcessMessage(context.Background(), sid, "Pune"); err != nil {
		t.Fatalf("set city: %v", err)
	}
	if _, err := s.ProcessMessage(context.Background(), sid, "I need a doctor"); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want propagated directory error", err)
	}
}

// ----- Session info and log listing -----

func TestGetSessionInfo(t *testing.T) {
	s := newTestChatService(t, nil, nil)

	if _, err := s.GetSessionInfo(context.Background(), uuid.NewString()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing session err = %v; want ErrSessionNotFound", err)
	}

	m, err := s.ProcessMessage(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	sess, err := s.GetSessionInfo(context.Background(), m.SessionID)
	if err != nil {
		t.Fatalf("GetSessionInfo: %v", err)
	}
	if sess.ID != m.SessionID {
		t.Fatalf("session id = %q; want %q", sess.ID, m.SessionID)
	}
}

func TestListMessages(t *testing.T) {
	s := newTestChatService(t, nil, nil)
	sid := uuid.NewString()

	if _, _, err := s.ListMessages(context.Background(), sid, 1, 20); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing session err = %v; want ErrSessionNotFound", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := s.ProcessMessage(context.Background(), sid, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("ProcessMessage: %v", err)
		}
	}

	// Invalid paging values fall back to defaults and return everything.
	items, total, err := s.ListMessages(context.Background(), sid, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if total != 5 || len(items) != 5 {
		t.Fatalf("total=%d len=%d; want 5/5", total, len(items))
	}

	items, total, err = s.ListMessages(context.Background(), sid, 2, 3)
	if err != nil {
		t.Fatalf("ListMessages page 2: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("page 2 of 3: total=%d len=%d; want 5/2", total, len(items))
	}
}
