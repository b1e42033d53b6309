package services

import (
	"context"
	"encoding/json"
	"time"

	"instructorcopilot/internal/artifacts"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/render"
	"instructorcopilot/internal/repos"
	"instructorcopilot/internal/types"
)

// GenerationStatus is the poll answer for the latest run: where it is, and
// once finished, what it produced. ProcessCompleted distinguishes "the run
// finished" from "files happen to exist from an earlier run".
type GenerationStatus struct {
	HasRun           bool              `json:"has_run"`
	RunID            string            `json:"run_id,omitempty"`
	Status           string            `json:"status,omitempty"`
	Stage            string            `json:"stage,omitempty"`
	Progress         int               `json:"progress"`
	ProcessCompleted bool              `json:"process_completed"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Error            string            `json:"error,omitempty"`
	CourseSlug       string            `json:"course_slug,omitempty"`
	Artifacts        []render.Artifact `json:"artifacts,omitempty"`
	TotalGenerated   int               `json:"total_generated"`
	TotalFailed      int               `json:"total_failed"`
}

type Readiness struct {
	HasConfig     bool                `json:"has_config"`
	HasCurriculum bool                `json:"has_curriculum"`
	Ready         bool                `json:"ready"`
	Config        *types.CourseConfig `json:"config,omitempty"`
}

type StatusService interface {
	GenerationStatus(ctx context.Context, userID string) (*GenerationStatus, error)
	Readiness(ctx context.Context, userID string) (*Readiness, error)
}

type statusService struct {
	runs    repos.GenerationRunRepo
	configs repos.CourseConfigRepo
	store   *artifacts.Store
	log     *logger.Logger
}

func NewStatusService(runs repos.GenerationRunRepo, configs repos.CourseConfigRepo, store *artifacts.Store, baseLog *logger.Logger) StatusService {
	return &statusService{
		runs:    runs,
		configs: configs,
		store:   store,
		log:     baseLog.With("service", "StatusService"),
	}
}

func (s *statusService) GenerationStatus(ctx context.Context, userID string) (*GenerationStatus, error) {
	run, err := s.runs.GetLatestByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return &GenerationStatus{HasRun: false}, nil
	}
	st := &GenerationStatus{
		HasRun:           true,
		RunID:            run.ID.String(),
		Status:           run.Status,
		Stage:            run.Stage,
		Progress:         run.Progress,
		ProcessCompleted: run.Status == types.RunStatusSucceeded && run.CompletedAt != nil,
		CompletedAt:      run.CompletedAt,
		Error:            run.Error,
		CourseSlug:       run.CourseSlug,
	}
	if len(run.Artifacts) > 0 {
		var arts []render.Artifact
		if err := json.Unmarshal(run.Artifacts, &arts); err == nil {
			st.Artifacts = arts
			for _, a := range arts {
				if a.OK {
					st.TotalGenerated++
				} else {
					st.TotalFailed++
				}
			}
		}
	}
	return st, nil
}

func (s *statusService) Readiness(ctx context.Context, userID string) (*Readiness, error) {
	cfg, err := s.configs.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	r := &Readiness{
		HasConfig:     cfg != nil,
		HasCurriculum: s.store.HasCurriculum(),
		Config:        cfg,
	}
	r.Ready = r.HasConfig && r.HasCurriculum
	return r, nil
}
