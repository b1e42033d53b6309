package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/pipeline"
	"instructorcopilot/internal/types"
)

type fakeConfigRepo struct {
	byUser map[string]*types.CourseConfig
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{byUser: map[string]*types.CourseConfig{}}
}

func (f *fakeConfigRepo) Upsert(ctx context.Context, tx *gorm.DB, cfg *types.CourseConfig) (*types.CourseConfig, error) {
	cp := *cfg
	f.byUser[cfg.UserID] = &cp
	return &cp, nil
}

func (f *fakeConfigRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*types.CourseConfig, error) {
	return f.byUser[userID], nil
}

func (f *fakeConfigRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID string, updates map[string]interface{}) error {
	cfg := f.byUser[userID]
	if cfg == nil {
		return nil
	}
	if p, ok := updates["curriculum_path"].(string); ok {
		cfg.CurriculumPath = p
	}
	return nil
}

func validInput() ConfigInput {
	return ConfigInput{
		UserID:          "u1",
		UserName:        "Jordan",
		CourseTopic:     "Databases",
		DifficultyLevel: "Intermediate",
		Duration:        "8 weeks",
		TeachingStyle:   "Project-Based / Hands-On",
	}
}

func TestValidateAndSaveAcceptsValidConfig(t *testing.T) {
	svc := NewConfigService(newFakeConfigRepo(), logger.NewNop())
	cfg, err := svc.ValidateAndSave(context.Background(), validInput())
	if err != nil {
		t.Fatalf("ValidateAndSave: %v", err)
	}
	if cfg.DifficultyLevel != types.DifficultyIntermediate {
		t.Fatalf("difficulty = %q", cfg.DifficultyLevel)
	}
	if cfg.TeachingStyle != types.StyleProjectBased {
		t.Fatalf("style = %q", cfg.TeachingStyle)
	}
	if time.Since(cfg.CreatedAt) > time.Minute {
		t.Fatalf("created_at not set")
	}
}

func TestValidateAndSaveNormalizesCase(t *testing.T) {
	in := validInput()
	in.DifficultyLevel = "aDvAnCeD"
	in.TeachingStyle = "EXPLORATORY & GUIDED"
	svc := NewConfigService(newFakeConfigRepo(), logger.NewNop())
	cfg, err := svc.ValidateAndSave(context.Background(), in)
	if err != nil {
		t.Fatalf("ValidateAndSave: %v", err)
	}
	if cfg.DifficultyLevel != types.DifficultyAdvanced {
		t.Fatalf("difficulty = %q", cfg.DifficultyLevel)
	}
	if cfg.TeachingStyle != types.StyleExploratory {
		t.Fatalf("style = %q", cfg.TeachingStyle)
	}
}

func TestValidateAndSaveRejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConfigInput)
	}{
		{"bad difficulty", func(in *ConfigInput) { in.DifficultyLevel = "Expert" }},
		{"bad style", func(in *ConfigInput) { in.TeachingStyle = "Socratic" }},
		{"default style not accepted as input", func(in *ConfigInput) { in.TeachingStyle = "Clear & Structured" }},
		{"missing topic", func(in *ConfigInput) { in.CourseTopic = "  " }},
		{"missing user name", func(in *ConfigInput) { in.UserName = "" }},
	}
	svc := NewConfigService(newFakeConfigRepo(), logger.NewNop())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.ValidateAndSave(context.Background(), in)
			var cfgErr *pipeline.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("want ConfigError, got %v", err)
			}
		})
	}
}

func TestValidateAndSaveDefaultsStyleWhenAbsent(t *testing.T) {
	in := validInput()
	in.TeachingStyle = ""
	svc := NewConfigService(newFakeConfigRepo(), logger.NewNop())
	cfg, err := svc.ValidateAndSave(context.Background(), in)
	if err != nil {
		t.Fatalf("ValidateAndSave: %v", err)
	}
	if cfg.TeachingStyle != types.StyleDefault {
		t.Fatalf("style = %q, want default", cfg.TeachingStyle)
	}
}

func TestParseDurationWeeks(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"8 weeks", 8},
		{"8", 8},
		{"about 6 weeks or so", 6},
		{"6wk", 6},
		{"twelve weeks", 0},
		{"", 0},
	}
	for _, tc := range tests {
		if got := ParseDurationWeeks(tc.in); got != tc.want {
			t.Fatalf("ParseDurationWeeks(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEffectiveWeeks(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"8 weeks", 8},
		{"no idea", DefaultDurationWeeks},
		{"0 weeks", DefaultDurationWeeks},
		{"40 weeks", MaxDurationWeeks},
	}
	for _, tc := range tests {
		if got := EffectiveWeeks(tc.in); got != tc.want {
			t.Fatalf("EffectiveWeeks(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
