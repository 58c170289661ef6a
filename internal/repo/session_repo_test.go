package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docline/go-doctor-backend/internal/domain"
)

func TestCreateSession_GeneratesIDWhenEmpty(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		t.Fatalf("expected generated UUID, got %q", s.ID)
	}
	if s.CreatedAt.IsZero() || s.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", s)
	}
}

func TestCreateSession_KeepsCallerID(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	ctx := context.Background()

	id := uuid.NewString()
	s, err := CreateSession(ctx, db, id)
	if err != nil || s.ID != id {
		t.Fatalf("CreateSession(%s) = (%+v, %v)", id, s, err)
	}

	got, err := GetSession(ctx, db, id)
	if err != nil || got.ID != id {
		t.Fatalf("GetSession = (%+v, %v)", got, err)
	}
}

func TestGetSession_Missing(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	if _, err := GetSession(context.Background(), db, "nope"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestSaveSession_UpdatesCityAndLastDoctor(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	docID := "doc-42"
	s.City = "Pune"
	s.LastDoctorID = &docID
	if err := SaveSession(ctx, db, s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := GetSession(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.City != "Pune" || got.LastDoctorID == nil || *got.LastDoctorID != "doc-42" {
		t.Fatalf("unexpected session after save: %+v", got)
	}

	// Clearing last doctor persists the nil.
	s.LastDoctorID = nil
	if err := SaveSession(ctx, db, s); err != nil {
		t.Fatalf("SaveSession (clear): %v", err)
	}
	got, _ = GetSession(ctx, db, s.ID)
	if got.LastDoctorID != nil {
		t.Fatalf("expected LastDoctorID cleared, got %v", *got.LastDoctorID)
	}
}

func TestSaveSession_MissingRow(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	s := &domain.ChatSession{ID: "ghost"}
	if err := SaveSession(context.Background(), db, s); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestCountSessions(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := CreateSession(ctx, db, ""); err != nil {
			t.Fatalf("CreateSession #%d: %v", i, err)
		}
	}
	total, err := CountSessions(ctx, db)
	if err != nil || total != 3 {
		t.Fatalf("CountSessions = (%d, %v), want (3, nil)", total, err)
	}
}
