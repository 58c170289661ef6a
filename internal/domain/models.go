// Package domain defines the persistence models for doctors, locations,
// chat sessions, and the per-turn conversation log. These types are mapped
// with GORM and form the core data layer of the doctor-discovery backend.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// StringList is an ordered list of strings persisted as a JSON array in a
// single TEXT column. Order is preserved on round-trip.
type StringList []string

// Value implements driver.Valuer for GORM serialization.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for GORM deserialization.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, l)
	default:
		return errors.New("unsupported source type for StringList")
	}
}

// Doctor represents a practitioner listed in the directory. Rows are created
// by the seed/import step and updated only by explicit administrative writes;
// the conversation pipeline treats this table as read-only.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name / Specialty: display name and medical field of practice.
//   - Address / Area / City / State / Country: location attributes; Area and
//     City are indexed because the directory filters on them.
//   - Rating: average patient rating in [1,5].
//   - Experience: whole years of practice (>= 0).
//   - Languages / Education: ordered lists, stored as JSON text.
//   - Available: whether the doctor currently accepts consultations.
//   - ConsultationFee: non-negative fee in local currency.
//   - Latitude / Longitude: optional geo coordinates for map display.
type Doctor struct {
	ID              string     `json:"id"               gorm:"type:char(36);primaryKey"`
	Name            string     `json:"name"             gorm:"type:varchar(255);not null"`
	Specialty       string     `json:"specialty"        gorm:"type:varchar(128);not null;index"`
	Address         string     `json:"address"          gorm:"type:varchar(255)"`
	Area            string     `json:"area"             gorm:"type:varchar(128);index"`
	City            string     `json:"city"             gorm:"type:varchar(128);index"`
	State           string     `json:"state"            gorm:"type:varchar(128)"`
	Country         string     `json:"country"          gorm:"type:varchar(128)"`
	Rating          float64    `json:"rating"           gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Experience      int        `json:"experience"       gorm:"not null;check:experience >= 0"`
	Languages       StringList `json:"languages"        gorm:"type:text"`
	Education       StringList `json:"education"        gorm:"type:text"`
	Available       bool       `json:"available"        gorm:"not null;index"`
	ConsultationFee float64    `json:"consultation_fee" gorm:"not null;check:consultation_fee >= 0"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Doctor.
func (Doctor) TableName() string { return "doctors" }

// City is a known city the location resolver can match against.
// Seeded once at startup and rarely mutated afterwards.
type City struct {
	ID        string    `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for City.
func (City) TableName() string { return "cities" }

// Area is a known neighbourhood/locality inside a city. The City field holds
// the owning city's name. Referential integrity is enforced at seed time,
// not by the store.
type Area struct {
	ID        string    `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null;uniqueIndex:ux_area_name_city,priority:1"`
	City      string    `json:"city" gorm:"type:varchar(128);not null;index;uniqueIndex:ux_area_name_city,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Area.
func (Area) TableName() string { return "areas" }

// ChatSession is the per-conversation mutable record. It is created lazily on
// the first message carrying a given session id and mutated by the resolver
// whenever a turn infers new information. Sessions are never deleted in
// normal operation; UpdatedAt doubles as the "last updated" marker.
//
// Fields:
//   - ID: session identifier (client-supplied or server-generated UUID).
//   - City: city inferred from the conversation, empty until known.
//   - LastDoctorID: id of the most recently recommended doctor, if any.
type ChatSession struct {
	ID           string         `json:"id"                       gorm:"type:char(36);primaryKey"`
	City         string         `json:"city,omitempty"           gorm:"type:varchar(128)"`
	LastDoctorID *string        `json:"last_doctor_id,omitempty" gorm:"type:char(36)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"                        gorm:"index"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// ChatMessage is one logged conversation turn: the inbound message, the reply
// the resolver composed, and any fields it derived along the way. Rows are
// append-only; they are written once per turn and never mutated.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - SessionID: foreign key to the owning session (indexed).
//   - Message / Response: verbatim user text and composed reply.
//   - Location: city resolved during the turn, if any.
//   - Symptoms: canonical symptoms extracted from the message, in first-seen order.
//   - Specialty: specialty the recommendation was based on, if any.
type ChatMessage struct {
	ID        string         `json:"id"                  gorm:"type:char(36);primaryKey"`
	SessionID string         `json:"session_id"          gorm:"type:char(36);not null;index:idx_session_msgs,priority:1"`
	Message   string         `json:"message"             gorm:"type:text;not null"`
	Response  string         `json:"response"            gorm:"type:text;not null"`
	Location  string         `json:"location,omitempty"  gorm:"type:varchar(128)"`
	Symptoms  StringList     `json:"symptoms,omitempty"  gorm:"type:text"`
	Specialty string         `json:"specialty,omitempty" gorm:"type:varchar(128)"`
	CreatedAt time.Time      `json:"created_at"          gorm:"index:idx_session_msgs,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"                   gorm:"index"`

	// Session is the parent conversation. Log entries are cascade-deleted
	// if their session is removed.
	Session ChatSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Feedback represents a user-provided rating on a specific assistant reply.
// A user can only leave one feedback entry per message (enforced by unique index).
type Feedback struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string         `json:"message_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_message_user"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_feedback_message_user"`
	Value     int            `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Message is the rated reply. Feedback is cascade-deleted if the
	// underlying log entry is removed.
	Message ChatMessage `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }
