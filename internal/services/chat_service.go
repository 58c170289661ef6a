// Package services – ChatService
//
// This file implements the ChatService, the conversation resolver at the core
// of the doctor-discovery pipeline. Each inbound turn is classified by an
// ordered rule table (see chat_rules.go): the rules are evaluated top to
// bottom, the first rule that produces a reply wins, and no two rules fire in
// the same turn. The only state carried across turns is the persisted
// ChatSession (city, last recommended doctor).
//
// Every turn, regardless of which rule answered, appends one entry to the
// append-only chat log together with whatever the turn derived (location,
// symptoms, specialty).
//
// Concurrency: the session read-modify-write is serialized per session id
// with a keyed mutex, so two concurrent turns for the same session cannot
// lose an update. Turns for different sessions proceed in parallel.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// the session identifier and the winning rule.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
	"github.com/docline/go-doctor-backend/internal/lexicon"
	"github.com/docline/go-doctor-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DoctorDirectory is the query surface the resolver consults for doctors.
// Implementations must be safe for concurrent use.
type DoctorDirectory interface {
	// List returns doctors matching the filter in deterministic order.
	List(ctx context.Context, f repo.DoctorFilter) ([]domain.Doctor, error)
	// Get fetches one doctor; a missing record maps to ErrDoctorNotFound.
	Get(ctx context.Context, id string) (*domain.Doctor, error)
}

// CityResolver decides whether free-text tokens name known cities or areas.
// Implementations must be safe for concurrent use.
type CityResolver interface {
	// IsValidCity reports whether token names a known city.
	IsValidCity(ctx context.Context, token string) (bool, error)
	// ResolveArea reports whether token names a known area and its owning city.
	ResolveArea(ctx context.Context, token string) (AreaMatch, error)
	// ListCities returns all known cities.
	ListCities(ctx context.Context) ([]domain.City, error)
}

// ChatService orchestrates the conversation: it loads or creates the session,
// runs the rule table, persists session mutations, and appends the log entry.
type ChatService struct {
	// DB is the GORM handle used for session and chat-log persistence.
	DB *gorm.DB
	// Directory answers doctor queries.
	Directory DoctorDirectory
	// Locations resolves city/area tokens.
	Locations CityResolver
	// Lexicon holds the immutable symptom and specialty tables.
	Lexicon *lexicon.Lexicon

	// MaxMessageRunes caps inbound messages by rune length (0 = unlimited).
	MaxMessageRunes int
	// MaxDoctorsListed caps how many doctors a symptom reply lists.
	MaxDoctorsListed int

	// locks serializes turns per session id (map[string]*sync.Mutex).
	locks sync.Map
}

// NewChatService constructs a ChatService with sane defaults.
func NewChatService(db *gorm.DB, dir DoctorDirectory, loc CityResolver, lex *lexicon.Lexicon) *ChatService {
	return &ChatService{
		DB:               db,
		Directory:        dir,
		Locations:        loc,
		Lexicon:          lex,
		MaxMessageRunes:  2000,
		MaxDoctorsListed: 3,
	}
}

// turn is the scratch state of a single conversation turn. It is discarded
// once the reply has been composed; only the session survives.
type turn struct {
	session *domain.ChatSession
	message string // verbatim inbound text
	lowered string // lowercased once, shared by all rules

	// derived during rule evaluation, recorded on the log entry
	location  string   // city freshly resolved this turn
	symptoms  []string // canonical symptoms, first-seen order
	specialty string   // specialty the reply was based on, if any
}

// ProcessMessage handles one inbound conversation turn. When sessionID is
// empty a new session id is generated; otherwise the session is created
// lazily on first use. The returned ChatMessage carries both the composed
// response and the (possibly generated) session id.
func (s *ChatService) ProcessMessage(ctx context.Context, sessionID, message string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "ProcessMessage",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(message) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := repo.GetSession(ctx, s.DB, sessionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if sess, err = repo.CreateSession(ctx, s.DB, sessionID); err != nil {
			return nil, err
		}
	}

	t := &turn{
		session: sess,
		message: message,
		lowered: strings.ToLower(message),
	}
	reply, rule, err := s.resolveTurn(ctx, t)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("chat.rule", rule))

	// Persist session mutations and the log entry together.
	var logged *domain.ChatMessage
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.SaveSession(ctx, tx, sess); err != nil {
			return err
		}
		m, err := repo.AppendMessage(tx, sess.ID, t.message, reply, t.location, t.symptoms, t.specialty)
		if err != nil {
			return err
		}
		logged = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logged, nil
}

// GetSessionInfo returns the persisted session record, or ErrSessionNotFound.
func (s *ChatService) GetSessionInfo(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "GetSessionInfo",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	sess, err := repo.GetSession(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// ListMessages returns a page of the session's chat log (oldest first) and
// the total count. It fails with ErrSessionNotFound for unknown sessions.
func (s *ChatService) ListMessages(ctx context.Context, sessionID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "ListMessages",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if _, err := repo.GetSession(ctx, s.DB, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrSessionNotFound
		}
		return nil, 0, err
	}
	total, err := repo.CountMessages(s.DB.WithContext(ctx), sessionID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), sessionID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// lockSession acquires the per-session mutex and returns its release func.
func (s *ChatService) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// resolveTurn runs the ordered rule table and returns the reply plus the name
// of the winning rule. The final rule always answers, so a nil error implies
// a non-empty reply.
func (s *ChatService) resolveTurn(ctx context.Context, t *turn) (string, string, error) {
	for _, r := range chatRules {
		reply, ok, err := r.handle(s, ctx, t)
		if err != nil {
			return "", "", err
		}
		if ok {
			return reply, r.name, nil
		}
	}
	// Unreachable: the fallback rule answers unconditionally.
	return "", "", errors.New("no rule answered")
}
