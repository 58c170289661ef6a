// Chat HTTP handlers.
//
// This file exposes the conversational endpoints:
//   - POST /chat                      (send a message, receive the bot reply)
//   - GET  /sessions/{id}             (inspect session state)
//   - GET  /sessions/{id}/messages    (list the chat log, paginated, ETag support)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
	"github.com/docline/go-doctor-backend/internal/repo"
	"github.com/docline/go-doctor-backend/internal/services"
	"github.com/docline/go-doctor-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatService defines the conversational operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatService interface {
	// ProcessMessage handles one conversation turn and returns the logged
	// message (user text + bot response) for the session.
	ProcessMessage(ctx context.Context, sessionID, message string) (*domain.ChatMessage, error)
	// GetSessionInfo returns the persisted state of a session.
	GetSessionInfo(ctx context.Context, sessionID string) (*domain.ChatSession, error)
	// ListMessages returns a page of the session's chat log and the total count.
	ListMessages(ctx context.Context, sessionID string, page, pageSize int) ([]domain.ChatMessage, int64, error)
}

// DirectoryService defines doctor lookup operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DirectoryService interface {
	// ListPage returns a page of doctors matching the filter and the total count.
	ListPage(ctx context.Context, f repo.DoctorFilter, page, pageSize int) ([]domain.Doctor, int64, error)
	// Get returns a single doctor by id.
	Get(ctx context.Context, id string) (*domain.Doctor, error)
}

// LocationService defines city/area lookup operations consumed by HTTP handlers.
type LocationService interface {
	// ListCities returns all known cities.
	ListCities(ctx context.Context) ([]domain.City, error)
	// ListAreas returns the areas of one city.
	ListAreas(ctx context.Context, city string) ([]domain.Area, error)
	// IsValidCity reports whether the name matches a known city.
	IsValidCity(ctx context.Context, name string) (bool, error)
}

// FeedbackService defines operations to capture user feedback on messages.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type FeedbackService interface {
	// Leave submits a feedback value (-1 or 1) for messageID by userID.
	Leave(ctx context.Context, userID, messageID string, value int) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for chat, sessions, doctors, locations, and
// feedback. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	chatSvc ChatService
	dirSvc  DirectoryService
	locSvc  LocationService
	fbSvc   FeedbackService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(chatSvc ChatService, dirSvc DirectoryService, locSvc LocationService, fbSvc FeedbackService) *Handlers {
	return &Handlers{chatSvc: chatSvc, dirSvc: dirSvc, locSvc: locSvc, fbSvc: fbSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// PostChatRequest is the JSON payload for sending a chat message.
//
// SessionID is optional: when empty, a new session is started and its id is
// returned in the response so the client can continue the conversation.
type PostChatRequest struct {
	// Message is the user utterance. It must be non-empty.
	Message string `json:"message" binding:"required,min=1" example:"I have a headache and fever"`
	// SessionID continues an existing conversation when set.
	SessionID string `json:"session_id,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// PostChatResponse is the JSON envelope for a completed conversation turn.
type PostChatResponse struct {
	// Response is the bot reply for this turn.
	Response string `json:"response"`
	// SessionID identifies the conversation (newly generated when the request
	// omitted one).
	SessionID string `json:"session_id"`
	// Message is the full persisted log entry for this turn.
	Message *domain.ChatMessage `json:"message"`
}

// SessionResponse wraps the persisted session state.
type SessionResponse struct {
	Session *domain.ChatSession `json:"session"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListMessagesResponse contains a page of chat messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeMessage normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeMessage(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxMessageRunes inspects the concrete ChatService for a configured
// message-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxMessageRunes(chatSvc ChatService) int {
	const fallback = 2000
	if cs, ok := chatSvc.(*services.ChatService); ok {
		if cs.MaxMessageRunes > 0 {
			return cs.MaxMessageRunes
		}
	}
	return fallback
}

// middlewareGetIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}

//
// Handlers
//

// PostChat godoc
// @ID          postChat
// @Summary     Send a chat message
// @Description Handles one conversation turn: resolves location and symptoms from the
// @Description message, advances the session state, and returns the bot reply.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.PostChatRequest  true  "Chat message payload"
//
// @Success     200  {object}  handlers.PostChatResponse  "Bot reply"
// @Failure     400  {object}  handlers.ErrorResponse     "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse     "Internal error"
// @Router      /chat [post]
func (h *Handlers) PostChat(c *gin.Context) {
	ctx := c.Request.Context()

	var req PostChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID != "" {
		if _, err := uuid.Parse(sessionID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
			return
		}
	}

	// Sanitize + early size cap to fail fast at the edge.
	message := sanitizeMessage(req.Message)
	maxRunes := discoverMaxMessageRunes(h.chatSvc)
	if maxRunes > 0 && utf8.RuneCountInString(message) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxRunes))
		return
	}
	if message == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" && sessionID != "" {
		if svc, okSvc := h.chatSvc.(*services.ChatService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, sessionID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, PostChatResponse{Response: prev.Response, SessionID: prev.SessionID, Message: prev})
					return
				}
			}
		}
	}

	// Normal processing (service has a second guard for length).
	m, err := h.chatSvc.ProcessMessage(ctx, sessionID, message)
	if err != nil {
		switch err {
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxRunes))
		default:
			fail(c, http.StatusInternalServerError, ErrCodeChatFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort. The session id recorded on the
	// message covers the case where the service generated a fresh one.
	if idemKey != "" {
		if svc, ok := h.chatSvc.(*services.ChatService); ok && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, m.SessionID, idemKey, m.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, PostChatResponse{Response: m.Response, SessionID: m.SessionID, Message: m})
}

// GetSession godoc
// @ID          getSession
// @Summary     Get session state
// @Description Returns the persisted state of a conversation session (city, last
// @Description recommended doctor, last update time).
// @Tags        Sessions
// @Produce     json
//
// @Param       id  path  string  true  "Session ID (UUID)"  format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object} handlers.SessionResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	s, err := h.chatSvc.GetSessionInfo(c.Request.Context(), sessionID)
	if err != nil {
		switch err {
		case services.ErrSessionNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, SessionResponse{Session: s})
}

// ListSessionMessages godoc
// @ID          listSessionMessages
// @Summary     List messages in a session
// @Description Returns a paginated chat log for the given session (oldest first).
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Sessions
// @Produce     json
//
// @Param       id             path   string  true  "Session ID (UUID)"  format(uuid)
// @Param       If-None-Match  header string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query  int     false "Page number"        minimum(1) default(1)
// @Param       page_size      query  int     false "Items per page"     minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id}/messages [get]
func (h *Handlers) ListSessionMessages(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.chatSvc.(*services.ChatService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, sessionID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, sessionID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.chatSvc.ListMessages(ctx, sessionID, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrSessionNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
