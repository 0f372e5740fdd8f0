// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fanout dispatches work units to concurrent workers and joins their
// results. The coordinator owns the only join barrier in the system: Dispatch
// returns after every unit has either succeeded or permanently failed, and
// Combine folds the surviving partial updates into one single-threaded,
// strictly after the join.
package fanout

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/draft-engine/pkg/types"
)

const (
	defaultMaxConcurrent = 10
	defaultMaxRetries    = 3
	defaultTimeout       = 5 * time.Minute
)

// BackoffBase controls the base duration for per-unit retry backoff. Tests
// override this to avoid real sleeps.
var BackoffBase = time.Second

// WorkerFunc performs one unit of work and returns a partial update. The
// update must touch accumulator fields only; Merge rejects anything else.
type WorkerFunc func(ctx context.Context, unit types.WorkUnit) (types.Update, error)

// UnitFailure records one permanently failed unit.
type UnitFailure struct {
	Unit types.WorkUnit
	Err  error
}

// WorkerFailure aggregates every unit that exhausted its retries. All sibling
// units still ran to completion before this error was built.
type WorkerFailure struct {
	Failures []UnitFailure
}

// Error lists every failed unit with its identifying parameter, not just the first.
func (e *WorkerFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d unit(s) failed:", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.Unit.ID(), f.Err)
	}
	return b.String()
}

// Coordinator runs the fan-out/join pattern over a worker function.
type Coordinator struct {
	// Worker is invoked once per unit, concurrently.
	Worker WorkerFunc

	// MaxConcurrent caps workers in flight (default 10).
	MaxConcurrent int

	// MaxRetries is the per-unit retry bound (default 3).
	MaxRetries int

	// Timeout bounds a single worker attempt (default 5m). A timed-out
	// attempt counts as a failed attempt for that unit only.
	Timeout time.Duration

	// Policy decides whether permanent unit failures abort the dispatch or
	// let it proceed with partial results (default abort).
	Policy types.FailurePolicy

	// Progress receives per-unit status lines. Defaults to io.Discard.
	Progress io.Writer
}

// Dispatch invokes the worker once per unit with no ordering guarantee and
// returns only after every unit has completed or permanently failed. A unit
// failure never cancels siblings already in flight.
//
// Under PolicyAbort any permanent failure yields a *WorkerFailure listing all
// failed units. Under PolicyProceed the successful units' updates are
// returned and failures are reported on the Progress writer.
func (c *Coordinator) Dispatch(ctx context.Context, units []types.WorkUnit) ([]types.Update, error) {
	if c.Worker == nil {
		return nil, fmt.Errorf("coordinator has no worker")
	}

	w := c.Progress
	if w == nil {
		w = io.Discard
	}
	maxConcurrent := c.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	type outcome struct {
		update types.Update
		err    error
	}
	outcomes := make([]outcome, len(units))

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	for i, unit := range units {
		wg.Add(1)
		go func(i int, unit types.WorkUnit) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			u, err := c.runUnit(ctx, unit)
			outcomes[i] = outcome{update: u, err: err}
		}(i, unit)
	}
	wg.Wait()

	// Join barrier passed: every unit has a final outcome. Failures are
	// collected in unit order so the aggregate error is deterministic.
	var updates []types.Update
	var failures []UnitFailure
	for i, unit := range units {
		if err := outcomes[i].err; err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", unit.ID(), err)
			failures = append(failures, UnitFailure{Unit: unit, Err: err})
			continue
		}
		fmt.Fprintf(w, "done    %s\n", unit.ID())
		updates = append(updates, outcomes[i].update)
	}

	if len(failures) == 0 {
		return updates, nil
	}

	if c.Policy == types.PolicyProceed {
		fmt.Fprintf(w, "proceeding with %d of %d unit(s)\n", len(updates), len(units))
		return updates, nil
	}
	return nil, &WorkerFailure{Failures: failures}
}

// runUnit executes one unit with per-attempt timeout and exponential backoff
// between attempts.
func (c *Coordinator) runUnit(ctx context.Context, unit types.WorkUnit) (types.Update, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BackoffBase
			select {
			case <-ctx.Done():
				return types.Update{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		u, err := c.Worker(attemptCtx, unit)
		cancel()
		if err == nil {
			if verr := u.AccumulatorOnly(); verr != nil {
				// Isolation violation is not retryable.
				return types.Update{}, verr
			}
			return u, nil
		}
		lastErr = err

		// A cancelled parent context ends the unit; a per-attempt timeout
		// just counts as a failed attempt.
		if ctx.Err() != nil {
			return types.Update{}, ctx.Err()
		}
	}
	return types.Update{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// Combine folds worker updates into one accumulator update, single-threaded,
// strictly after the join. Folding is commutative and associative, so the
// result does not depend on worker completion order.
func Combine(updates []types.Update) (types.Update, error) {
	var combined types.Update
	for i, u := range updates {
		if err := u.AccumulatorOnly(); err != nil {
			return types.Update{}, fmt.Errorf("update %d: %w", i, err)
		}
		combined.CompletedSections += u.CompletedSections
		combined.GeneratedSections = append(combined.GeneratedSections, u.GeneratedSections...)
	}
	return combined, nil
}
