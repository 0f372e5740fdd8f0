// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import "fmt"

// PlanningError means the planning step could not produce a usable work list.
// The pipeline halts before any fan-out occurs.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// StepError wraps a step failure with the failing step's name.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ResumeError means a resume was attempted with an unknown, expired, or
// already-consumed session key. No pipeline state was mutated.
type ResumeError struct {
	Session string
	Err     error
}

func (e *ResumeError) Error() string {
	return fmt.Sprintf("cannot resume session %q: %v", e.Session, e.Err)
}

func (e *ResumeError) Unwrap() error { return e.Err }
