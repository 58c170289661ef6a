package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{(Doctor{}).TableName(), "doctors"},
		{(City{}).TableName(), "cities"},
		{(Area{}).TableName(), "areas"},
		{(ChatSession{}).TableName(), "chat_sessions"},
		{(ChatMessage{}).TableName(), "chat_messages"},
		{(Feedback{}).TableName(), "feedback"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("TableName() = %q; want %q", c.got, c.want)
		}
	}
}

func TestStringList_ValueAndScan(t *testing.T) {
	// Value: nil and empty serialize to empty JSON array.
	for _, sl := range []StringList{nil, {}} {
		v, err := sl.Value()
		if err != nil || v != "[]" {
			t.Fatalf("Value(%v) = (%v, %v); want (\"[]\", nil)", sl, v, err)
		}
	}
	v, err := StringList{"headache", "fever"}.Value()
	if err != nil || v != `["headache","fever"]` {
		t.Fatalf("Value = (%v, %v)", v, err)
	}

	// Scan: string, []byte, nil, and garbage.
	var sl StringList
	if err := sl.Scan(`["a","b"]`); err != nil || len(sl) != 2 || sl[1] != "b" {
		t.Fatalf("Scan(string) = (%v, %v)", sl, err)
	}
	if err := sl.Scan([]byte(`["x"]`)); err != nil || len(sl) != 1 || sl[0] != "x" {
		t.Fatalf("Scan([]byte) = (%v, %v)", sl, err)
	}
	if err := sl.Scan(nil); err != nil || sl != nil {
		t.Fatalf("Scan(nil) = (%v, %v); want (nil, nil)", sl, err)
	}
	if err := sl.Scan("{not json"); err == nil {
		t.Fatalf("expected error scanning malformed JSON")
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&City{}, &Area{}, &Doctor{}, &ChatSession{}, &ChatMessage{}, &Feedback{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&City{}, &Area{}, &Doctor{}, &ChatSession{}, &ChatMessage{}, &Feedback{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	// Indexes from tags exist
	if !m.HasIndex(&ChatMessage{}, "idx_session_msgs") {
		t.Fatalf("expected index idx_session_msgs on chat_messages")
	}
	if !m.HasIndex(&Feedback{}, "ux_feedback_message_user") {
		t.Fatalf("expected unique index ux_feedback_message_user on feedback")
	}
	if !m.HasIndex(&Area{}, "ux_area_name_city") {
		t.Fatalf("expected unique index ux_area_name_city on areas")
	}

	// Seed a session, two log entries, and a feedback tied to one entry
	now := time.Now().UTC()

	sess := &ChatSession{ID: "s1", City: "Pune", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(sess).Error; err != nil {
		t.Fatalf("insert session: %v", err)
	}

	m1 := &ChatMessage{ID: "m1", SessionID: "s1", Message: "hello", Response: "Hello! How can I help?", CreatedAt: now, UpdatedAt: now}
	m2 := &ChatMessage{ID: "m2", SessionID: "s1", Message: "I have a fever", Response: "...", Symptoms: StringList{"fever"}, CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second)}
	if err := db.Create(m1).Error; err != nil {
		t.Fatalf("insert m1: %v", err)
	}
	if err := db.Create(m2).Error; err != nil {
		t.Fatalf("insert m2: %v", err)
	}

	fb := &Feedback{ID: "f1", MessageID: "m2", UserID: "u1", Value: 1, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(fb).Error; err != nil {
		t.Fatalf("insert feedback: %v", err)
	}

	// Symptoms survive the TEXT column round-trip.
	var back ChatMessage
	if err := db.First(&back, "id = ?", "m2").Error; err != nil {
		t.Fatalf("readback m2: %v", err)
	}
	if len(back.Symptoms) != 1 || back.Symptoms[0] != "fever" {
		t.Fatalf("symptoms round-trip failed: %+v", back.Symptoms)
	}

	// CASCADE: deleting a log entry should delete its feedback
	if err := db.Unscoped().Delete(&ChatMessage{}, "id = ?", "m2").Error; err != nil {
		t.Fatalf("delete m2: %v", err)
	}
	var cnt int64
	if err := db.Model(&Feedback{}).Where("message_id = ?", "m2").Count(&cnt).Error; err != nil {
		t.Fatalf("count feedback after message delete: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected feedback to cascade-delete when message deleted, got count=%d", cnt)
	}

	// CASCADE: deleting the session should delete remaining log entries
	if err := db.Unscoped().Delete(&ChatSession{}, "id = ?", "s1").Error; err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if err := db.Model(&ChatMessage{}).Where("session_id = ?", "s1").Count(&cnt).Error; err != nil {
		t.Fatalf("count messages after session delete: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected messages to cascade-delete when session deleted, got count=%d", cnt)
	}
}
