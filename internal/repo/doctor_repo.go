// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Doctor model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a doctor is not found, GetDoctor returns gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Query semantics (ListDoctors):
//   - Search is a case-insensitive substring match OR-ed across
//     name/specialty/area/city.
//   - Specialty, City, and Area are case-insensitive exact matches.
//   - MinRating keeps doctors with rating >= the given value.
//   - Available, when set, filters on the availability flag.
//   - All set filters are AND-ed together (the Search OR-clause counts as
//     one conjunct).
//   - Results are ordered rating DESC, name ASC, id ASC so that "take the
//     first result" is deterministic.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
)

// DoctorFilter restricts a directory query. Zero-valued fields impose no
// constraint.
type DoctorFilter struct {
	Search    string   // substring across name/specialty/area/city (OR)
	Specialty string   // exact, case-insensitive
	City      string   // exact, case-insensitive
	Area      string   // exact, case-insensitive
	MinRating float64  // rating >= MinRating when > 0
	Available *bool    // availability flag when non-nil
}

// applyDoctorFilter composes the WHERE clauses for f onto q.
func applyDoctorFilter(q *gorm.DB, f DoctorFilter) *gorm.DB {
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(specialty) LIKE ? OR LOWER(area) LIKE ? OR LOWER(city) LIKE ?",
			pat, pat, pat, pat,
		)
	}
	if v := strings.TrimSpace(f.Specialty); v != "" {
		q = q.Where("LOWER(specialty) = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(f.City); v != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(f.Area); v != "" {
		q = q.Where("LOWER(area) = ?", strings.ToLower(v))
	}
	if f.MinRating > 0 {
		q = q.Where("rating >= ?", f.MinRating)
	}
	if f.Available != nil {
		q = q.Where("available = ?", *f.Available)
	}
	return q
}

// ListDoctors returns all doctors matching the filter, ordered rating DESC,
// name ASC, id ASC. It returns an empty slice when nothing matches. On DB
// error, it returns the error.
func ListDoctors(ctx context.Context, db *gorm.DB, f DoctorFilter) ([]domain.Doctor, error) {
	var out []domain.Doctor
	err := applyDoctorFilter(db.WithContext(ctx).Model(&domain.Doctor{}), f).
		Order("rating DESC, name ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListDoctorsPage returns a paginated slice of doctors matching the filter,
// with the same deterministic ordering as ListDoctors. Use CountDoctors to
// obtain the total for pagination metadata.
func ListDoctorsPage(ctx context.Context, db *gorm.DB, f DoctorFilter, offset, limit int) ([]domain.Doctor, error) {
	var out []domain.Doctor
	err := applyDoctorFilter(db.WithContext(ctx).Model(&domain.Doctor{}), f).
		Order("rating DESC, name ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountDoctors returns the total number of doctors matching the filter.
func CountDoctors(ctx context.Context, db *gorm.DB, f DoctorFilter) (int64, error) {
	var total int64
	err := applyDoctorFilter(db.WithContext(ctx).Model(&domain.Doctor{}), f).
		Count(&total).Error
	return total, err
}

// GetDoctor fetches a single doctor by ID. If the record does not exist, it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func GetDoctor(ctx context.Context, db *gorm.DB, id string) (*domain.Doctor, error) {
	var d domain.Doctor
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
