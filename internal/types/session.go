package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session state keys written by the pipeline. Each key holds the full text
// accumulated for that stage output.
const (
	StateKeyCoursePlan        = "coursePlan"
	StateKeyCourseContent     = "courseContent"
	StateKeyDeepCourseContent = "deepCourseContent"
	StateKeyStructuredContent = "structuredContent"
)

// Session is the durable conversation state for one generation pipeline:
// a JSON snapshot of stage outputs plus an append-only event log
// (SessionEvent). The snapshot is the authoritative read model; events are
// the audit trail.
type Session struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;not null;index" json:"user_id"`
	State     datatypes.JSON `gorm:"column:state" json:"state"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Session) TableName() string { return "session" }

// SessionEvent is one immutable entry in a session's event log. Ordinal is
// monotonic per session and is the authoritative ordering; when two events
// disagree about a value the higher ordinal wins.
type SessionEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_session_event_ordinal,priority:1" json:"session_id"`
	Ordinal   int64     `gorm:"column:ordinal;not null;index:idx_session_event_ordinal,priority:2" json:"ordinal"`
	Author    string    `gorm:"column:author;not null" json:"author"`
	Text      string    `gorm:"column:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (SessionEvent) TableName() string { return "session_event" }
