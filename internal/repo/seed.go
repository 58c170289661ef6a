// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file seeds the location and doctor reference data the
// conversation pipeline reads from. Seeding is idempotent: rows are matched
// by natural key (city name, area name+city, doctor name+city) and only
// inserted when absent.
//
// The Area -> City reference is a soft invariant the store does not enforce;
// the seeder does. An area naming an unknown city is rejected with
// ErrUnknownAreaCity so bad reference data never reaches the resolver.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
)

// ErrUnknownAreaCity is returned when seed data contains an area whose city
// is not part of the seeded city set.
var ErrUnknownAreaCity = fmt.Errorf("area references unknown city")

// SeedData is the on-disk shape accepted by SeedFromFile.
type SeedData struct {
	Cities  []string        `json:"cities"`
	Areas   []domain.Area   `json:"areas"`
	Doctors []domain.Doctor `json:"doctors"`
}

// SeedFromFile loads seed data from a JSON file and applies it.
func SeedFromFile(ctx context.Context, db *gorm.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return Seed(ctx, db, data)
}

// SeedDefaults applies the built-in reference data set.
func SeedDefaults(ctx context.Context, db *gorm.DB) error {
	return Seed(ctx, db, defaultSeedData())
}

// Seed applies the given reference data inside one transaction, skipping rows
// that already exist. Areas are validated against the union of seeded and
// already-present cities before any write happens.
func Seed(ctx context.Context, db *gorm.DB, data SeedData) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		known := make(map[string]struct{}, len(data.Cities))
		for _, name := range data.Cities {
			known[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
		}
		var existing []domain.City
		if err := tx.Find(&existing).Error; err != nil {
			return err
		}
		for _, c := range existing {
			known[strings.ToLower(c.Name)] = struct{}{}
		}
		for _, a := range data.Areas {
			if _, ok := known[strings.ToLower(strings.TrimSpace(a.City))]; !ok {
				return fmt.Errorf("%w: area %q -> city %q", ErrUnknownAreaCity, a.Name, a.City)
			}
		}

		now := time.Now().UTC()
		for _, name := range data.Cities {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			city := domain.City{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
			if err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).
				FirstOrCreate(&city, domain.City{Name: name}).Error; err != nil {
				return err
			}
		}
		for _, a := range data.Areas {
			area := domain.Area{ID: uuid.NewString(), Name: a.Name, City: a.City, CreatedAt: now, UpdatedAt: now}
			if err := tx.Where("LOWER(name) = ? AND LOWER(city) = ?",
				strings.ToLower(a.Name), strings.ToLower(a.City)).
				FirstOrCreate(&area, domain.Area{Name: a.Name, City: a.City}).Error; err != nil {
				return err
			}
		}
		for _, d := range data.Doctors {
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			d.CreatedAt, d.UpdatedAt = now, now
			var count int64
			if err := tx.Model(&domain.Doctor{}).
				Where("LOWER(name) = ? AND LOWER(city) = ?", strings.ToLower(d.Name), strings.ToLower(d.City)).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&d).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// defaultSeedData is the reference set the service ships with.
func defaultSeedData() SeedData {
	return SeedData{
		Cities: []string{"Pune", "Mumbai", "Delhi", "Bangalore", "Hyderabad"},
		Areas: []domain.Area{
			{Name: "Kothrud", City: "Pune"},
			{Name: "Baner", City: "Pune"},
			{Name: "Viman Nagar", City: "Pune"},
			{Name: "Andheri", City: "Mumbai"},
			{Name: "Bandra", City: "Mumbai"},
			{Name: "Dadar", City: "Mumbai"},
			{Name: "Saket", City: "Delhi"},
			{Name: "Dwarka", City: "Delhi"},
			{Name: "Koramangala", City: "Bangalore"},
			{Name: "Indiranagar", City: "Bangalore"},
			{Name: "Banjara Hills", City: "Hyderabad"},
		},
		Doctors: []domain.Doctor{
			{
				Name: "Dr. Asha Kulkarni", Specialty: "Cardiology",
				Address: "12 Paud Road", Area: "Kothrud", City: "Pune", State: "Maharashtra", Country: "India",
				Rating: 4.8, Experience: 18, Available: true, ConsultationFee: 900,
				Languages: domain.StringList{"English", "Hindi", "Marathi"},
				Education: domain.StringList{"MBBS", "MD (Cardiology)"},
			},
			{
				Name: "Dr. Rohan Deshmukh", Specialty: "General Medicine",
				Address: "3 Baner Road", Area: "Baner", City: "Pune", State: "Maharashtra", Country: "India",
				Rating: 4.5, Experience: 11, Available: true, ConsultationFee: 500,
				Languages: domain.StringList{"English", "Marathi"},
				Education: domain.StringList{"MBBS", "MD (General Medicine)"},
			},
			{
				Name: "Dr. Neha Joshi", Specialty: "Dermatology",
				Address: "45 Airport Road", Area: "Viman Nagar", City: "Pune", State: "Maharashtra", Country: "India",
				Rating: 4.6, Experience: 9, Available: false, ConsultationFee: 700,
				Languages: domain.StringList{"English", "Hindi"},
				Education: domain.StringList{"MBBS", "DDVL"},
			},
			{
				Name: "Dr. Sameer Shah", Specialty: "Orthopedics",
				Address: "8 Linking Road", Area: "Bandra", City: "Mumbai", State: "Maharashtra", Country: "India",
				Rating: 4.7, Experience: 15, Available: true, ConsultationFee: 1100,
				Languages: domain.StringList{"English", "Hindi", "Gujarati"},
				Education: domain.StringList{"MBBS", "MS (Orthopedics)"},
			},
			{
				Name: "Dr. Priya Nair", Specialty: "Gynecology",
				Address: "21 SV Road", Area: "Andheri", City: "Mumbai", State: "Maharashtra", Country: "India",
				Rating: 4.9, Experience: 20, Available: true, ConsultationFee: 1200,
				Languages: domain.StringList{"English", "Hindi", "Malayalam"},
				Education: domain.StringList{"MBBS", "MD (Obstetrics & Gynecology)"},
			},
			{
				Name: "Dr. Vikram Mehta", Specialty: "Neurology",
				Address: "5 Press Enclave Road", Area: "Saket", City: "Delhi", State: "Delhi", Country: "India",
				Rating: 4.6, Experience: 14, Available: true, ConsultationFee: 1500,
				Languages: domain.StringList{"English", "Hindi"},
				Education: domain.StringList{"MBBS", "DM (Neurology)"},
			},
			{
				Name: "Dr. Kavya Reddy", Specialty: "Pediatrics",
				Address: "30 Sector 12", Area: "Dwarka", City: "Delhi", State: "Delhi", Country: "India",
				Rating: 4.4, Experience: 8, Available: true, ConsultationFee: 600,
				Languages: domain.StringList{"English", "Hindi", "Telugu"},
				Education: domain.StringList{"MBBS", "MD (Pediatrics)"},
			},
			{
				Name: "Dr. Arjun Rao", Specialty: "Pulmonology",
				Address: "17 80 Feet Road", Area: "Koramangala", City: "Bangalore", State: "Karnataka", Country: "India",
				Rating: 4.5, Experience: 12, Available: true, ConsultationFee: 800,
				Languages: domain.StringList{"English", "Kannada", "Hindi"},
				Education: domain.StringList{"MBBS", "MD (Pulmonary Medicine)"},
			},
			{
				Name: "Dr. Meera Iyer", Specialty: "Psychiatry",
				Address: "100 Feet Road", Area: "Indiranagar", City: "Bangalore", State: "Karnataka", Country: "India",
				Rating: 4.7, Experience: 10, Available: true, ConsultationFee: 1000,
				Languages: domain.StringList{"English", "Tamil", "Kannada"},
				Education: domain.StringList{"MBBS", "MD (Psychiatry)"},
			},
			{
				Name: "Dr. Imran Khan", Specialty: "ENT",
				Address: "2 Road No. 10", Area: "Banjara Hills", City: "Hyderabad", State: "Telangana", Country: "India",
				Rating: 4.3, Experience: 7, Available: true, ConsultationFee: 550,
				Languages: domain.StringList{"English", "Hindi", "Urdu"},
				Education: domain.StringList{"MBBS", "MS (ENT)"},
			},
			{
				Name: "Dr. Sunita Patil", Specialty: "Gastroenterology",
				Address: "9 Paud Road", Area: "Kothrud", City: "Pune", State: "Maharashtra", Country: "India",
				Rating: 4.6, Experience: 16, Available: true, ConsultationFee: 950,
				Languages: domain.StringList{"English", "Marathi", "Hindi"},
				Education: domain.StringList{"MBBS", "DM (Gastroenterology)"},
			},
		},
	}
}
