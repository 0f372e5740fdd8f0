// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow runs a linear sequence of named steps over a shared Record
// with durable suspend/resume. Steps execute strictly sequentially; a step
// marked with a Resume func is a suspension point: the pipeline checkpoints
// the full Record there and returns control until the caller resumes with an
// external input. Each suspension is resumable exactly once.
package workflow

import (
	"context"
	"fmt"

	"github.com/pdiddy/draft-engine/internal/checkpoint"
	"github.com/pdiddy/draft-engine/pkg/types"
)

// StepFunc runs one pipeline step and returns a partial Record update.
type StepFunc func(ctx context.Context, rec types.Record) (types.Update, error)

// ResumeFunc converts the external input supplied at resume into the partial
// update that injects it under the step's designated Record field.
type ResumeFunc func(input string) types.Update

// Step is one named stage of the pipeline. A non-nil Resume marks the step as
// a suspension point; its Run is never called.
type Step struct {
	Name   string
	Run    StepFunc
	Resume ResumeFunc
}

// Status reports how a pipeline invocation ended.
type Status string

const (
	// StatusCompleted means the terminal step finished.
	StatusCompleted Status = "completed"

	// StatusSuspended means the pipeline checkpointed at a suspension point
	// and is awaiting external input. Not an error.
	StatusSuspended Status = "suspended"
)

// Outcome is the result of Run or Resume.
type Outcome struct {
	// Status is completed or suspended.
	Status Status

	// Record is the state at completion or suspension.
	Record types.Record

	// Step is the suspension point's name when Status is suspended.
	Step string
}

// Pipeline is a linear sequence of steps backed by a checkpoint store.
type Pipeline struct {
	steps []Step
	store checkpoint.Store
}

// New builds a pipeline, validating that steps are non-empty, uniquely named,
// and each declares exactly one of Run or Resume.
func New(store checkpoint.Store, steps ...Step) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one step")
	}
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.Name == "" {
			return nil, fmt.Errorf("step name is required")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate step name %q", s.Name)
		}
		seen[s.Name] = true
		if (s.Run == nil) == (s.Resume == nil) {
			return nil, fmt.Errorf("step %q must declare exactly one of Run or Resume", s.Name)
		}
	}
	return &Pipeline{steps: steps, store: store}, nil
}

// Run executes the pipeline from the first step until it completes or reaches
// a suspension point. At a suspension point the full Record and position are
// persisted under session before control returns.
func (p *Pipeline) Run(ctx context.Context, session string, rec types.Record) (Outcome, error) {
	return p.runFrom(ctx, session, rec, 0)
}

// Resume loads the session's checkpoint, consumes it, injects input via the
// suspension step's Resume func, and continues from the following step.
// An unknown session or an already-consumed checkpoint yields a *ResumeError
// with no state mutation.
func (p *Pipeline) Resume(ctx context.Context, session, input string) (Outcome, error) {
	cp, err := p.store.Load(ctx, session)
	if err != nil {
		return Outcome{}, &ResumeError{Session: session, Err: err}
	}

	idx := p.stepIndex(cp.Step)
	if idx < 0 || p.steps[idx].Resume == nil {
		return Outcome{}, &ResumeError{Session: session,
			Err: fmt.Errorf("checkpoint step %q is not a suspension point of this pipeline", cp.Step)}
	}

	// Consume before running anything so a duplicate resume is rejected
	// instead of re-executing steps.
	if err := p.store.Consume(ctx, session, cp.Version); err != nil {
		return Outcome{}, &ResumeError{Session: session, Err: err}
	}

	rec := cp.Record.Apply(p.steps[idx].Resume(input))
	return p.runFrom(ctx, session, rec, idx+1)
}

// runFrom advances the step sequence starting at index from.
func (p *Pipeline) runFrom(ctx context.Context, session string, rec types.Record, from int) (Outcome, error) {
	for i := from; i < len(p.steps); i++ {
		step := p.steps[i]

		if step.Resume != nil {
			cp := checkpoint.Checkpoint{Session: session, Step: step.Name, Record: rec}
			if err := p.store.Save(ctx, cp); err != nil {
				return Outcome{}, &StepError{Step: step.Name,
					Err: fmt.Errorf("saving checkpoint: %w", err)}
			}
			return Outcome{Status: StatusSuspended, Record: rec, Step: step.Name}, nil
		}

		u, err := step.Run(ctx, rec)
		if err != nil {
			// Halt. Any earlier checkpoint stays available for diagnosis.
			return Outcome{}, &StepError{Step: step.Name, Err: err}
		}
		rec = rec.Apply(u)
	}
	return Outcome{Status: StatusCompleted, Record: rec}, nil
}

// stepIndex returns the index of the named step, or -1.
func (p *Pipeline) stepIndex(name string) int {
	for i, s := range p.steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}
