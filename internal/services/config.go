package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/pipeline"
	"instructorcopilot/internal/repos"
	"instructorcopilot/internal/types"
)

// Week count bounds for the content loop. Durations parse leniently, but the
// pipeline never runs outside this range.
const (
	DefaultDurationWeeks = 8
	MinDurationWeeks     = 1
	MaxDurationWeeks     = 12
)

// ConfigInput is the raw upload form payload, before validation.
type ConfigInput struct {
	UserID          string
	UserName        string
	CourseTopic     string
	DifficultyLevel string
	Duration        string
	TeachingStyle   string
}

type ConfigService interface {
	// ValidateAndSave normalizes and persists the config. Invalid fields
	// come back as *pipeline.ConfigError.
	ValidateAndSave(ctx context.Context, in ConfigInput) (*types.CourseConfig, error)
	Get(ctx context.Context, userID string) (*types.CourseConfig, error)
	SetCurriculumPath(ctx context.Context, userID, path string) error
}

type configService struct {
	repo repos.CourseConfigRepo
	log  *logger.Logger
}

func NewConfigService(repo repos.CourseConfigRepo, baseLog *logger.Logger) ConfigService {
	return &configService{repo: repo, log: baseLog.With("service", "ConfigService")}
}

func (s *configService) ValidateAndSave(ctx context.Context, in ConfigInput) (*types.CourseConfig, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, &pipeline.ConfigError{Field: "user_id", Reason: "required"}
	}
	userName := strings.TrimSpace(in.UserName)
	if userName == "" {
		return nil, &pipeline.ConfigError{Field: "user_name", Reason: "required"}
	}
	topic := strings.TrimSpace(in.CourseTopic)
	if topic == "" {
		return nil, &pipeline.ConfigError{Field: "course_topic", Reason: "required"}
	}

	difficulty, ok := types.ValidDifficulties[strings.ToLower(strings.TrimSpace(in.DifficultyLevel))]
	if !ok {
		return nil, &pipeline.ConfigError{Field: "difficulty_level", Reason: "must be one of Foundational, Intermediate, Advanced"}
	}

	style := strings.TrimSpace(in.TeachingStyle)
	if style == "" {
		style = types.StyleDefault
	} else {
		canonical, ok := types.ValidTeachingStyles[strings.ToLower(style)]
		if !ok {
			return nil, &pipeline.ConfigError{Field: "teaching_style", Reason: "unknown teaching style"}
		}
		style = canonical
	}

	duration := strings.TrimSpace(in.Duration)
	if duration == "" {
		duration = "8 weeks"
	}

	cfg := &types.CourseConfig{
		UserID:          userID,
		UserName:        userName,
		CourseTopic:     topic,
		DifficultyLevel: difficulty,
		Duration:        duration,
		TeachingStyle:   style,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	saved, err := s.repo.Upsert(ctx, nil, cfg)
	if err != nil {
		return nil, err
	}
	s.log.Info("Course config saved", "user_id", userID, "topic", topic)
	return saved, nil
}

func (s *configService) Get(ctx context.Context, userID string) (*types.CourseConfig, error) {
	return s.repo.GetByUserID(ctx, nil, userID)
}

func (s *configService) SetCurriculumPath(ctx context.Context, userID, path string) error {
	return s.repo.UpdateFields(ctx, nil, userID, map[string]interface{}{"curriculum_path": path})
}

var reFirstInt = regexp.MustCompile(`\d+`)

// ParseDurationWeeks reads the first integer out of a free-text duration
// ("8 weeks", "about 6", "6wk"). Returns 0 when nothing parses; callers fall
// back to the default week count.
func ParseDurationWeeks(duration string) int {
	m := reFirstInt.FindString(duration)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// EffectiveWeeks clamps a parsed duration into the supported range,
// substituting the default for unparsable input.
func EffectiveWeeks(duration string) int {
	n := ParseDurationWeeks(duration)
	if n == 0 {
		return DefaultDurationWeeks
	}
	if n < MinDurationWeeks {
		return MinDurationWeeks
	}
	if n > MaxDurationWeeks {
		return MaxDurationWeeks
	}
	return n
}
