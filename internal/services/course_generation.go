package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"instructorcopilot/internal/artifacts"
	"instructorcopilot/internal/clients/gemini"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/pipeline"
	"instructorcopilot/internal/prompt"
	"instructorcopilot/internal/render"
	"instructorcopilot/internal/repos"
	"instructorcopilot/internal/segment"
	"instructorcopilot/internal/sse"
	"instructorcopilot/internal/types"
	"instructorcopilot/internal/utils"
)

// ErrRunInProgress is returned by Enqueue when the user already has a
// queued or running generation.
var ErrRunInProgress = errors.New("a generation run is already in progress")

// ErrNotReady is returned by Enqueue when config or curriculum is missing.
var ErrNotReady = errors.New("course config and curriculum must be uploaded first")

type CourseGenerationService interface {
	Enqueue(ctx context.Context, userID string) (*types.GenerationRun, error)
	StartWorker(ctx context.Context)
}

type courseGenerationService struct {
	db       *gorm.DB
	log      *logger.Logger
	runs     repos.GenerationRunRepo
	sessions repos.SessionRepo
	events   repos.SessionEventRepo
	configs  repos.CourseConfigRepo
	client   gemini.Client
	runner   *pipeline.Runner
	builder  StructuredBuilder
	store    *artifacts.Store
	hub      *sse.Hub

	renderers []render.Renderer

	maxAttempts  int
	retryDelay   time.Duration
	staleRunning time.Duration
	runTimeout   time.Duration
}

func NewCourseGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	runs repos.GenerationRunRepo,
	sessions repos.SessionRepo,
	events repos.SessionEventRepo,
	configs repos.CourseConfigRepo,
	client gemini.Client,
	builder StructuredBuilder,
	store *artifacts.Store,
	hub *sse.Hub,
	renderers []render.Renderer,
) CourseGenerationService {
	log := baseLog.With("service", "CourseGenerationService")
	return &courseGenerationService{
		db:           db,
		log:          log,
		runs:         runs,
		sessions:     sessions,
		events:       events,
		configs:      configs,
		client:       client,
		runner:       pipeline.NewRunner(client, baseLog),
		builder:      builder,
		store:        store,
		hub:          hub,
		renderers:    renderers,
		maxAttempts:  utils.GetEnvAsInt("GENERATION_MAX_ATTEMPTS", 3, log),
		retryDelay:   time.Duration(utils.GetEnvAsInt("GENERATION_RETRY_DELAY_SECONDS", 30, log)) * time.Second,
		staleRunning: time.Duration(utils.GetEnvAsInt("GENERATION_STALE_RUNNING_SECONDS", 120, log)) * time.Second,
		runTimeout:   time.Duration(utils.GetEnvAsInt("GENERATION_TIMEOUT_SECONDS", 3600, log)) * time.Second,
	}
}

func (s *courseGenerationService) Enqueue(ctx context.Context, userID string) (*types.GenerationRun, error) {
	cfg, err := s.configs.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !s.store.HasCurriculum() {
		return nil, ErrNotReady
	}

	active, err := s.runs.GetActiveByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrRunInProgress
	}

	var run *types.GenerationRun
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := s.sessions.Create(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		run, err = s.runs.Create(ctx, tx, &types.GenerationRun{
			UserID:    userID,
			SessionID: sess.ID,
			Status:    types.RunStatusQueued,
			Stage:     types.RunStageQueued,
		})
		if err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(run.ID, sse.EventGenerationProgress, map[string]any{
		"run_id": run.ID.String(),
		"status": types.RunStatusQueued,
		"stage":  types.RunStageQueued,
	})
	s.log.Info("Generation run enqueued", "run_id", run.ID, "user_id", userID)
	return run, nil
}

// StartWorker polls for runnable runs. The claim is the single-writer
// guarantee: only the goroutine that claimed a run touches its session.
func (s *courseGenerationService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run, err := s.runs.ClaimNextRunnable(ctx, nil, s.maxAttempts, s.retryDelay, s.staleRunning)
				if err != nil {
					s.log.Error("Claim failed", "error", err)
					continue
				}
				if run == nil {
					continue
				}
				s.processRun(ctx, run)
			}
		}
	}()
}

func (s *courseGenerationService) processRun(parent context.Context, run *types.GenerationRun) {
	ctx, cancel := context.WithTimeout(parent, s.runTimeout)
	defer cancel()

	log := s.log.With("run_id", run.ID)
	log.Info("Processing generation run", "attempt", run.Attempts+1)

	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := s.runs.Heartbeat(context.Background(), nil, run.ID); err != nil {
					log.Warn("Heartbeat failed", "error", err)
				}
			}
		}
	}()

	fail := func(stage string, err error) {
		updates := map[string]interface{}{
			"status":        types.RunStatusFailed,
			"stage":         stage,
			"error":         err.Error(),
			"last_error_at": time.Now(),
		}
		// Fatal and config errors never succeed on retry; burn the attempts.
		var fatal *pipeline.FatalError
		var cfgErr *pipeline.ConfigError
		if errors.As(err, &fatal) || errors.As(err, &cfgErr) {
			updates["attempts"] = s.maxAttempts
		}
		if uErr := s.runs.UpdateFields(context.Background(), nil, run.ID, updates); uErr != nil {
			log.Error("Failed to record run failure", "error", uErr)
		}
		s.broadcast(run.ID, sse.EventGenerationFailed, map[string]any{
			"run_id": run.ID.String(),
			"stage":  stage,
			"error":  err.Error(),
		})
		log.Error("Generation run failed", "stage", stage, "error", err)
	}

	progress := func(stage string, pct int, msg string) {
		if err := s.runs.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
			"stage":    stage,
			"progress": pct,
		}); err != nil {
			log.Warn("Failed to update progress", "stage", stage, "error", err)
		}
		s.broadcast(run.ID, sse.EventGenerationProgress, map[string]any{
			"run_id":   run.ID.String(),
			"status":   types.RunStatusRunning,
			"stage":    stage,
			"progress": pct,
			"message":  msg,
		})
	}

	cfg, err := s.configs.GetByUserID(ctx, nil, run.UserID)
	if err != nil || cfg == nil {
		fail(types.RunStagePlan, &pipeline.ConfigError{Field: "course_config", Reason: "not found"})
		return
	}
	pdf, err := s.store.ReadCurriculum()
	if err != nil {
		fail(types.RunStagePlan, &pipeline.ConfigError{Field: "curriculum", Reason: "not uploaded"})
		return
	}

	store := newSessionStore(run.SessionID, s.sessions, s.events)
	weeks := EffectiveWeeks(cfg.Duration)

	// Stages 1-2: plan then full content, strictly ordered.
	sequential := []pipeline.Stage{
		{
			Name:      types.RunStagePlan,
			System:    prompt.Planner(cfg.UserName, cfg.CourseTopic, cfg.DifficultyLevel, cfg.Duration, cfg.TeachingStyle),
			WriteKey:  types.StateKeyCoursePlan,
			PDF:       pdf,
			Grounding: true,
		},
		{
			Name:     types.RunStageContent,
			System:   prompt.CourseContent(),
			ReadKeys: []string{types.StateKeyCoursePlan},
			WriteKey: types.StateKeyCourseContent,
		},
	}
	stagePct := map[string]int{types.RunStagePlan: 10, types.RunStageContent: 25}
	if err := s.runner.RunSequential(ctx, store, sequential, func(stage string) {
		progress(stage, stagePct[stage], "stage started")
	}); err != nil {
		fail(stageOf(err), err)
		return
	}

	// Stage 3: the weekly deep-content loop, append-only, one week per
	// iteration, bounded by the configured duration.
	progress(types.RunStageDeepLoop, 40, "writing weekly content")
	loopStage := pipeline.Stage{
		Name:            types.RunStageDeepLoop,
		System:          prompt.DeepContentLoop(weeks),
		ReadKeys:        []string{types.StateKeyCoursePlan},
		WriteKey:        types.StateKeyDeepCourseContent,
		IncludeEventLog: true,
	}
	loopRes, err := s.runner.RunLoop(ctx, store, loopStage, weeks, func(text string) bool {
		return strings.Contains(text, prompt.LoopDoneSentinel)
	})
	if err != nil {
		fail(stageOf(err), err)
		return
	}
	log.Info("Deep content loop finished", "iterations", loopRes.Iterations, "outcome", loopRes.Outcome)

	// Stage 4: consolidate into the structured document.
	progress(types.RunStageStructure, 60, "structuring course document")
	state, err := store.State(ctx)
	if err != nil {
		fail(types.RunStageStructure, err)
		return
	}
	corpus := state[types.StateKeyCourseContent] + "\n\n" + state[types.StateKeyDeepCourseContent]
	corpus = strings.TrimSpace(strings.ReplaceAll(corpus, prompt.LoopDoneSentinel, ""))
	structured := s.builder.Build(ctx, corpus, cfg.CourseTopic, weeks)
	if err := store.Set(ctx, types.StateKeyStructuredContent, structured); err != nil {
		fail(types.RunStageStructure, err)
		return
	}

	// Stage 5: split into weeks.
	progress(types.RunStageSegment, 70, "segmenting weeks")
	segRes := segment.Split(structured)
	if segRes.Fallback {
		log.Warn("No week structure found, using whole document as week 1")
	}

	title, overview, bullets := ParseStructuredDoc(structured)
	if title == "" {
		title = ExtractCourseTitle(corpus, cfg.CourseTopic)
	}
	slug := artifacts.Slugify(title)
	doc := render.Document{
		CourseTitle:   title,
		CourseSlug:    slug,
		Overview:      overview,
		WeeklySummary: bullets,
		Weeks:         segRes.Weeks,
		Difficulty:    cfg.DifficultyLevel,
	}
	if err := s.runs.UpdateFields(ctx, nil, run.ID, map[string]interface{}{"course_slug": slug}); err != nil {
		log.Warn("Failed to record course slug", "error", err)
	}

	// Stage 6: render every category concurrently. Renderers only read doc,
	// so they can run in parallel; failures stay per-artifact.
	progress(types.RunStageRender, 80, "rendering documents")
	allArtifacts := s.renderAll(ctx, doc)

	raw, err := json.Marshal(allArtifacts)
	if err != nil {
		raw = []byte(`[]`)
	}
	now := time.Now()
	if err := s.runs.UpdateFields(context.Background(), nil, run.ID, map[string]interface{}{
		"status":       types.RunStatusSucceeded,
		"stage":        types.RunStageDone,
		"progress":     100,
		"completed_at": now,
		"artifacts":    datatypes.JSON(raw),
	}); err != nil {
		log.Error("Failed to finalize run", "error", err)
		return
	}
	s.broadcast(run.ID, sse.EventGenerationDone, map[string]any{
		"run_id":    run.ID.String(),
		"status":    types.RunStatusSucceeded,
		"slug":      slug,
		"artifacts": len(allArtifacts),
	})
	log.Info("Generation run succeeded", "artifacts", len(allArtifacts), "slug", slug)
}

// renderAll fans the renderers out and merges their artifact reports. A
// category that fails outright is reported as a single failed artifact so
// the run summary still accounts for it.
func (s *courseGenerationService) renderAll(ctx context.Context, doc render.Document) []render.Artifact {
	var mu sync.Mutex
	var all []render.Artifact

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range s.renderers {
		r := r
		g.Go(func() error {
			dir, err := s.store.CategoryDir(r.Category())
			if err != nil {
				mu.Lock()
				all = append(all, render.Artifact{Category: r.Category(), Error: err.Error()})
				mu.Unlock()
				return nil
			}
			arts, err := r.Render(gctx, doc, dir)
			mu.Lock()
			all = append(all, arts...)
			if err != nil {
				all = append(all, render.Artifact{Category: r.Category(), Error: err.Error()})
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return all
}

func (s *courseGenerationService) broadcast(runID uuid.UUID, event string, data map[string]any) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(sse.Message{
		Channel: sse.ChannelGeneration,
		Event:   event,
		Data:    data,
	})
}

// stageOf extracts the stage name from a pipeline error, defaulting to plan.
func stageOf(err error) string {
	var fatal *pipeline.FatalError
	if errors.As(err, &fatal) {
		return fatal.Stage
	}
	var transient *pipeline.TransientError
	if errors.As(err, &transient) {
		return transient.Stage
	}
	return types.RunStagePlan
}
