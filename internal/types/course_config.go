package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Closed difficulty vocabulary. Anything else is rejected at the boundary.
const (
	DifficultyFoundational = "Foundational"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// Closed teaching-style vocabulary. "Clear & Structured" is the default
// applied when the field is absent, never accepted as input.
const (
	StyleExploratory  = "Exploratory & Guided"
	StyleProjectBased = "Project-Based / Hands-On"
	StyleConceptual   = "Conceptual & Conversational"
	StyleDefault      = "Clear & Structured"
)

type CourseConfig struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string         `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	UserName        string         `gorm:"column:user_name;not null" json:"user_name"`
	CourseTopic     string         `gorm:"column:course_topic;not null" json:"course_topic"`
	DifficultyLevel string         `gorm:"column:difficulty_level;not null" json:"difficulty_level"`
	Duration        string         `gorm:"column:duration;not null" json:"duration"`
	TeachingStyle   string         `gorm:"column:teaching_style;not null" json:"teaching_style"`
	CurriculumPath  string         `gorm:"column:curriculum_path" json:"curriculum_path,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseConfig) TableName() string { return "course_config" }

// ValidDifficulties and ValidTeachingStyles are the accepted inputs, keyed by
// their lowercase forms for case-insensitive matching.
var ValidDifficulties = map[string]string{
	"foundational": DifficultyFoundational,
	"intermediate": DifficultyIntermediate,
	"advanced":     DifficultyAdvanced,
}

var ValidTeachingStyles = map[string]string{
	"exploratory & guided":        StyleExploratory,
	"project-based / hands-on":    StyleProjectBased,
	"conceptual & conversational": StyleConceptual,
}
