// Package services – DirectoryService
//
// This file implements the DirectoryService, the query surface over the
// doctor collection. It is read-only from the conversation pipeline's point
// of view: doctors are created by the seed/import step and updated only by
// explicit administrative writes. Store failures propagate untouched; there
// is no local caching, fallback, or retry here.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
	"github.com/docline/go-doctor-backend/internal/repo"
)

// DirectoryService answers doctor queries for the conversation resolver and
// the HTTP listing endpoints.
type DirectoryService struct {
	// DB is the GORM handle used for queries.
	DB *gorm.DB
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{DB: db}
}

// List returns all doctors matching the filter in deterministic order
// (rating DESC, name ASC, id ASC). Unset filter fields impose no constraint.
func (s *DirectoryService) List(ctx context.Context, f repo.DoctorFilter) ([]domain.Doctor, error) {
	return repo.ListDoctors(ctx, s.DB, f)
}

// ListPage returns a page of doctors matching the filter plus the total count.
// It applies defaults for invalid page/pageSize.
func (s *DirectoryService) ListPage(ctx context.Context, f repo.DoctorFilter, page, pageSize int) ([]domain.Doctor, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountDoctors(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Doctor{}, 0, nil
	}

	items, err := repo.ListDoctorsPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// Get fetches one doctor by id. A missing record maps to ErrDoctorNotFound;
// other store errors propagate as-is.
func (s *DirectoryService) Get(ctx context.Context, id string) (*domain.Doctor, error) {
	d, err := repo.GetDoctor(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return d, nil
}
