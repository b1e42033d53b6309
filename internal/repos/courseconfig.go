package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/types"
)

type CourseConfigRepo interface {
	// Upsert keeps one config per user, replacing any prior one.
	Upsert(ctx context.Context, tx *gorm.DB, cfg *types.CourseConfig) (*types.CourseConfig, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*types.CourseConfig, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, userID string, updates map[string]interface{}) error
}

type courseConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseConfigRepo(db *gorm.DB, baseLog *logger.Logger) CourseConfigRepo {
	return &courseConfigRepo{db: db, log: baseLog.With("repo", "CourseConfigRepo")}
}

func (r *courseConfigRepo) Upsert(ctx context.Context, tx *gorm.DB, cfg *types.CourseConfig) (*types.CourseConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_name", "course_topic", "difficulty_level",
				"duration", "teaching_style", "curriculum_path", "updated_at",
			}),
		}).
		Create(cfg).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, transaction, cfg.UserID)
}

func (r *courseConfigRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*types.CourseConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cfg types.CourseConfig
	err := transaction.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&cfg).Error
	if err != nil {
		return nil, err
	}
	if cfg.ID == uuid.Nil {
		return nil, nil
	}
	return &cfg, nil
}

func (r *courseConfigRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID string, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.CourseConfig{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}
