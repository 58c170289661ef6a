// Package services – FeedbackService
//
// This file implements the FeedbackService, which governs how users leave
// feedback (-1 or +1) on assistant replies in the chat log. It enforces
// business rules (log entry existence, uniqueness per user) and persists
// feedback atomically. Service-level errors (ErrInvalidFeedback,
// ErrMessageNotFound, ErrDuplicateFeedback) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/repo"
)

// FeedbackService implements the use-cases around reply feedback.
// It validates the operation and persists the feedback using the provided
// GORM handle. The service is context-aware and opens its own transaction
// per call.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
}

// Leave records a feedback value for messageID on behalf of userID.
//
// Semantics and validation:
//   - value must be exactly -1 (negative) or 1 (positive); otherwise ErrInvalidFeedback.
//   - messageID must exist in the chat log; otherwise ErrMessageNotFound.
//   - A user may leave at most one feedback per log entry; attempting to do
//     so again yields ErrDuplicateFeedback.
//
// Concurrency & atomicity:
//   - The operation runs inside a transaction so the existence check and the
//     insert are atomic.
//
// Errors:
//   - Returns the service-level sentinel errors for the validation cases
//     above, the underlying DB error for unexpected failures.
func (s *FeedbackService) Leave(ctx context.Context, userID, messageID string, value int) error {
	if value != -1 && value != 1 {
		return ErrInvalidFeedback
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) Verify the log entry exists.
		if _, err := repo.GetMessage(tx, messageID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || isNotFound(err) {
				return ErrMessageNotFound
			}
			return err
		}

		// 2) Insert feedback with (message_id, user_id) uniqueness semantics.
		if err := repo.CreateFeedback(ctx, tx, messageID, userID, value); err != nil {
			// Map duplicate key to a stable service error.
			if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
				return ErrDuplicateFeedback
			}
			return err
		}
		return nil
	})
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
