// Package services – LocationService
//
// This file implements the LocationService, the resolver that decides whether
// a free-text token names a known city or area. Matching is case-insensitive
// exact match against the seeded set; there is no fuzzy, partial, or
// punctuation-normalized matching. Empty and whitespace-only input is
// rejected without touching the store. The service is read-only.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
	"github.com/docline/go-doctor-backend/internal/repo"
)

// AreaMatch is the result of resolving a token against the known area set.
// When Valid is true, City carries the owning city's name.
type AreaMatch struct {
	Valid bool
	City  string
}

// LocationRepo defines the repository contract required by LocationService.
type LocationRepo interface {
	// GetCityByName fetches a city by case-insensitive exact name.
	GetCityByName(ctx context.Context, db *gorm.DB, name string) (*domain.City, error)
	// GetAreaByName fetches an area by case-insensitive exact name.
	GetAreaByName(ctx context.Context, db *gorm.DB, name string) (*domain.Area, error)
	// ListCities returns all known cities ordered by name.
	ListCities(ctx context.Context, db *gorm.DB, limit int) ([]domain.City, error)
}

// LocationService resolves free-text tokens to known cities and areas.
type LocationService struct {
	// DB is the GORM handle used for lookups.
	DB *gorm.DB
	// Repo is the location repository used by this service.
	Repo LocationRepo
}

// NewLocationService constructs a LocationService over the default repository.
func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{DB: db, Repo: locationRepoShim{}}
}

// IsValidCity reports whether token names a known city (case-insensitive
// exact match). Blank input returns false without a store query.
func (s *LocationService) IsValidCity(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	_, err := s.Repo.GetCityByName(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResolveArea reports whether token names a known area and, if so, which
// city owns it. Blank input returns an invalid match without a store query.
func (s *LocationService) ResolveArea(ctx context.Context, token string) (AreaMatch, error) {
	if strings.TrimSpace(token) == "" {
		return AreaMatch{}, nil
	}
	a, err := s.Repo.GetAreaByName(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AreaMatch{}, nil
		}
		return AreaMatch{}, err
	}
	return AreaMatch{Valid: true, City: a.City}, nil
}

// ListCities returns all known cities.
func (s *LocationService) ListCities(ctx context.Context) ([]domain.City, error) {
	return s.Repo.ListCities(ctx, s.DB, 0)
}

// ListAreas returns the areas of one city.
func (s *LocationService) ListAreas(ctx context.Context, city string) ([]domain.Area, error) {
	return repo.ListAreasByCity(ctx, s.DB, city)
}

// locationRepoShim adapts the repository free functions to the LocationRepo
// interface. This keeps the service decoupled from the concrete repo package
// while reusing existing functions.
type locationRepoShim struct{}

func (locationRepoShim) GetCityByName(ctx context.Context, db *gorm.DB, name string) (*domain.City, error) {
	return repo.GetCityByName(ctx, db, name)
}

func (locationRepoShim) GetAreaByName(ctx context.Context, db *gorm.DB, name string) (*domain.Area, error) {
	return repo.GetAreaByName(ctx, db, name)
}

func (locationRepoShim) ListCities(ctx context.Context, db *gorm.DB, limit int) ([]domain.City, error) {
	return repo.ListCities(ctx, db, limit)
}
