// Package pipeline runs ordered generation stages against a session store.
// Stages read prior stage outputs from the session snapshot, call the model,
// record the call in the event log and write their output key. Loop stages
// append instead of overwriting and stop on a termination predicate or an
// iteration cap.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"instructorcopilot/internal/clients/gemini"
	"instructorcopilot/internal/logger"
)

// Store is the session the pipeline reads and writes. Implementations are
// bound to one session; the pipeline never sees session IDs.
type Store interface {
	State(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	Append(ctx context.Context, key, value string) error
	AppendEvent(ctx context.Context, author, text string) error
	// EventLog returns the ordered log as "[author] text" lines.
	EventLog(ctx context.Context) (string, error)
}

type Stage struct {
	Name      string
	System    string
	ReadKeys  []string // required state inputs; missing key fails the stage
	WriteKey  string
	PDF       []byte // optional document attached ahead of the text parts
	Grounding bool
	// IncludeEventLog feeds the full ordered event log to the model in
	// addition to the ReadKeys values.
	IncludeEventLog bool
}

// LoopOutcome says how a loop stage terminated.
type LoopOutcome string

const (
	LoopComplete  LoopOutcome = "complete"  // termination predicate fired
	LoopExhausted LoopOutcome = "exhausted" // iteration cap reached
)

type LoopResult struct {
	Iterations int
	Outcome    LoopOutcome
}

type Runner struct {
	client       gemini.Client
	log          *logger.Logger
	stageRetries int
}

func NewRunner(client gemini.Client, baseLog *logger.Logger) *Runner {
	return &Runner{
		client:       client,
		log:          baseLog.With("service", "PipelineRunner"),
		stageRetries: 3,
	}
}

// RunSequential executes stages strictly in order, failing fast. notify, if
// non-nil, is called with each stage name before the stage runs.
func (r *Runner) RunSequential(ctx context.Context, store Store, stages []Stage, notify func(stage string)) error {
	for _, stage := range stages {
		if notify != nil {
			notify(stage.Name)
		}
		text, err := r.runStage(ctx, store, stage, "")
		if err != nil {
			return err
		}
		if err := store.Set(ctx, stage.WriteKey, text); err != nil {
			return &FatalError{Stage: stage.Name, Err: fmt.Errorf("write state %q: %w", stage.WriteKey, err)}
		}
	}
	return nil
}

// RunLoop executes one stage repeatedly, appending each iteration's output
// under the stage's WriteKey. After every iteration the accumulated output
// is re-read so the next call sees everything produced so far. Every
// iteration's output is appended before done is evaluated against it, so a
// final iteration that carries both content and the stop signal keeps its
// content; firing stops the loop early. Reaching maxIterations is a normal
// terminal outcome, not an error. Partial iterations are never rolled back.
func (r *Runner) RunLoop(ctx context.Context, store Store, stage Stage, maxIterations int, done func(text string) bool) (LoopResult, error) {
	if maxIterations < 1 {
		maxIterations = 1
	}
	for i := 0; i < maxIterations; i++ {
		state, err := store.State(ctx)
		if err != nil {
			return LoopResult{Iterations: i, Outcome: LoopExhausted}, &FatalError{Stage: stage.Name, Err: err}
		}
		accumulated := state[stage.WriteKey]

		text, err := r.runStage(ctx, store, stage, accumulated)
		if err != nil {
			return LoopResult{Iterations: i, Outcome: LoopExhausted}, err
		}
		if err := store.Append(ctx, stage.WriteKey, text); err != nil {
			return LoopResult{Iterations: i, Outcome: LoopExhausted}, &FatalError{Stage: stage.Name, Err: fmt.Errorf("append state %q: %w", stage.WriteKey, err)}
		}
		if done != nil && done(text) {
			r.log.Info("Loop stage terminated by predicate", "stage", stage.Name, "iterations", i+1)
			return LoopResult{Iterations: i + 1, Outcome: LoopComplete}, nil
		}
	}
	r.log.Info("Loop stage reached iteration cap", "stage", stage.Name, "iterations", maxIterations)
	return LoopResult{Iterations: maxIterations, Outcome: LoopExhausted}, nil
}

// runStage gathers the stage inputs, calls the model with bounded retries on
// transient failures and records the call in the event log. accumulated, when
// non-empty, is injected after the ReadKeys values (loop stages pass their
// output so far).
func (r *Runner) runStage(ctx context.Context, store Store, stage Stage, accumulated string) (string, error) {
	if r.client == nil {
		return "", &ConfigError{Field: "gemini", Reason: "model client is not configured"}
	}
	state, err := store.State(ctx)
	if err != nil {
		return "", &FatalError{Stage: stage.Name, Err: err}
	}

	var contents []string
	for _, key := range stage.ReadKeys {
		val, ok := state[key]
		if !ok || strings.TrimSpace(val) == "" {
			return "", &FatalError{Stage: stage.Name, Err: fmt.Errorf("required state key %q is missing", key)}
		}
		contents = append(contents, val)
	}
	if accumulated != "" {
		contents = append(contents, "=== OUTPUT SO FAR ===\n"+accumulated)
	}
	if stage.IncludeEventLog {
		log, err := store.EventLog(ctx)
		if err != nil {
			return "", &FatalError{Stage: stage.Name, Err: err}
		}
		if log != "" {
			contents = append(contents, "=== EVENTS ===\n"+log)
		}
	}
	if len(contents) == 0 {
		contents = []string{"Begin."}
	}

	var lastErr error
	for attempt := 0; attempt <= r.stageRetries; attempt++ {
		if ctx.Err() != nil {
			return "", &FatalError{Stage: stage.Name, Err: ctx.Err()}
		}
		res, err := r.client.Generate(ctx, gemini.GenerateRequest{
			System:    stage.System,
			Contents:  contents,
			PDF:       stage.PDF,
			Grounding: stage.Grounding,
		})
		if err == nil {
			// Record the call before the state write: the log is the audit
			// trail even when the snapshot write fails afterwards.
			if evErr := store.AppendEvent(ctx, stage.Name, res.Text); evErr != nil {
				return "", &FatalError{Stage: stage.Name, Err: fmt.Errorf("record event: %w", evErr)}
			}
			return res.Text, nil
		}
		if !gemini.IsTransient(err) {
			return "", &FatalError{Stage: stage.Name, Err: err}
		}
		lastErr = err
		r.log.Warn("Stage call failed, retrying", "stage", stage.Name, "attempt", attempt+1, "error", err)
	}
	// Exhausted in-process retries. Surface as transient so the run queue
	// may still retry the whole run under its attempt cap.
	return "", &TransientError{Stage: stage.Name, Err: fmt.Errorf("retries exhausted: %w", lastErr)}
}
