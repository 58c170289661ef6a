// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatSession
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Concurrency note: SaveSession is a plain UPDATE with last-write-wins
// semantics. Serialization of concurrent turns for the same session is the
// service layer's responsibility (see services.ChatService).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateSession inserts a new, empty session row. When id is empty, a random
// UUID is generated. CreatedAt is set to UTC now.
//
// On success, it returns the persisted session. On failure, it returns a DB error.
func CreateSession(ctx context.Context, db *gorm.DB, id string) (*domain.ChatSession, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	s := &domain.ChatSession{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a session by ID, or ErrNotFound if missing.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSession persists the mutable fields of a session (city, last
// recommended doctor) and refreshes UpdatedAt. If no row is affected the
// session is missing and ErrNotFound is returned.
func SaveSession(ctx context.Context, db *gorm.DB, s *domain.ChatSession) error {
	s.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", s.ID).
		Updates(map[string]any{
			"city":           s.City,
			"last_doctor_id": s.LastDoctorID,
			"updated_at":     s.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountSessions returns the total number of sessions.
func CountSessions(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.ChatSession{}).Count(&total).Error
	return total, err
}
