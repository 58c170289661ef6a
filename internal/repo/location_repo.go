// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the City and
// Area models used by the location resolver.
//
// Matching is case-insensitive exact match: the resolver never does fuzzy or
// partial lookups, so neither does the repository.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
)

// ListCities returns all known cities ordered by name ascending.
func ListCities(ctx context.Context, db *gorm.DB, limit int) ([]domain.City, error) {
	var out []domain.City
	q := db.WithContext(ctx).Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetCityByName fetches a city by case-insensitive exact name match.
// Returns ErrNotFound when the name is unknown.
func GetCityByName(ctx context.Context, db *gorm.DB, name string) (*domain.City, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	var c domain.City
	err := db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAreaByName fetches an area by case-insensitive exact name match. When
// the same area name exists in more than one city, the first by city name
// ascending wins (deterministic). Returns ErrNotFound when unknown.
func GetAreaByName(ctx context.Context, db *gorm.DB, name string) (*domain.Area, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	var a domain.Area
	err := db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Order("city ASC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAreasByCity returns all areas belonging to the given city (case-
// insensitive), ordered by name ascending.
func ListAreasByCity(ctx context.Context, db *gorm.DB, city string) ([]domain.Area, error) {
	var out []domain.Area
	err := db.WithContext(ctx).
		Where("LOWER(city) = ?", strings.ToLower(strings.TrimSpace(city))).
		Order("name ASC").
		Find(&out).Error
	return out, err
}
