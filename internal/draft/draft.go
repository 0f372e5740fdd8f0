// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package draft wires the drafting pipeline: plan an outline, fan out one
// writer per section, assemble the document, suspend for a user question,
// then think and answer in two sequential passes.
package draft

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/draft-engine/internal/artifact"
	"github.com/pdiddy/draft-engine/internal/checkpoint"
	"github.com/pdiddy/draft-engine/internal/fanout"
	"github.com/pdiddy/draft-engine/internal/genai"
	"github.com/pdiddy/draft-engine/internal/workflow"
	"github.com/pdiddy/draft-engine/pkg/types"
)

// Step names, in pipeline order.
const (
	StepPlan       = "plan"
	StepWrite      = "write"
	StepAssemble   = "assemble"
	StepAwaitQuery = "await-query"
	StepThink      = "think"
	StepAnswer     = "answer"
)

// defaultSectionCount is the outline size requested from the planner.
const defaultSectionCount = 12

// Drafter builds and runs the drafting pipeline.
type Drafter struct {
	// Client is the generation oracle.
	Client genai.Client

	// Artifacts stores section text outside the Record.
	Artifacts *artifact.Store

	// Config holds AI and fan-out settings.
	Config types.WorkflowConfig

	// SectionCount is the requested outline size (default 12).
	SectionCount int

	// Progress receives per-step status lines. Defaults to io.Discard.
	Progress io.Writer
}

// Pipeline assembles the six-step drafting pipeline over the given
// checkpoint store.
func (d *Drafter) Pipeline(store checkpoint.Store) (*workflow.Pipeline, error) {
	if d.Client == nil {
		return nil, fmt.Errorf("generation client is required")
	}
	if d.Artifacts == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	return workflow.New(store,
		workflow.Step{Name: StepPlan, Run: d.plan},
		workflow.Step{Name: StepWrite, Run: d.write},
		workflow.Step{Name: StepAssemble, Run: d.assemble},
		workflow.Step{Name: StepAwaitQuery, Resume: acceptQuery},
		workflow.Step{Name: StepThink, Run: d.think},
		workflow.Step{Name: StepAnswer, Run: d.answer},
	)
}

func (d *Drafter) progress() io.Writer {
	if d.Progress == nil {
		return io.Discard
	}
	return d.Progress
}

// plan asks the oracle for a structured outline. Any failure here is a
// PlanningError: the pipeline halts before fan-out, so there is no partial
// damage to clean up.
func (d *Drafter) plan(ctx context.Context, rec types.Record) (types.Update, error) {
	sections := d.SectionCount
	if sections <= 0 {
		sections = defaultSectionCount
	}

	prompt, err := renderOutlinePrompt(rec.Topic, sections)
	if err != nil {
		return types.Update{}, &workflow.PlanningError{Err: err}
	}

	text, err := genai.CallWithRetry(ctx, d.Client, prompt, d.Config.AI.MaxRetries)
	if err != nil {
		return types.Update{}, &workflow.PlanningError{Err: err}
	}

	titles, err := parseOutline(text)
	if err != nil {
		return types.Update{}, &workflow.PlanningError{Err: err}
	}

	fmt.Fprintf(d.progress(), "planned %d section(s)\n", len(titles))
	return types.Update{SectionsToWrite: titles}, nil
}

// BuildWorkUnits derives the fan-out work list from the Record. Deterministic:
// the same Record always yields the same units.
func BuildWorkUnits(rec types.Record) []types.WorkUnit {
	units := make([]types.WorkUnit, len(rec.SectionsToWrite))
	for i, title := range rec.SectionsToWrite {
		units[i] = types.WorkUnit{Title: title, Index: i, ArtifactKey: rec.ArtifactKey}
	}
	return units
}

// write fans out one writer per planned section and folds the surviving
// partial updates after the join.
func (d *Drafter) write(ctx context.Context, rec types.Record) (types.Update, error) {
	units := BuildWorkUnits(rec)

	c := &fanout.Coordinator{
		Worker:        d.writeSection,
		MaxConcurrent: d.Config.FanOut.MaxConcurrent,
		MaxRetries:    d.Config.FanOut.MaxRetries,
		Timeout:       d.Config.FanOut.WorkerTimeout,
		Policy:        d.Config.FanOut.OnFailure,
		Progress:      d.progress(),
	}

	updates, err := c.Dispatch(ctx, units)
	if err != nil {
		return types.Update{}, err
	}
	return fanout.Combine(updates)
}

// writeSection is the worker: generate one section's text and append it to
// the artifact store under the unit's order key. Retries and timeouts are the
// coordinator's job; a retried worker safely overwrites its own segment.
func (d *Drafter) writeSection(ctx context.Context, unit types.WorkUnit) (types.Update, error) {
	prompt, err := renderSectionPrompt(unit.Title)
	if err != nil {
		return types.Update{}, err
	}

	text, err := d.Client.Generate(ctx, prompt)
	if err != nil {
		return types.Update{}, err
	}

	content := fmt.Sprintf("## %s\n\n%s\n\n", unit.Title, strings.TrimSpace(text))
	if err := d.Artifacts.Append(unit.ArtifactKey, unit.Index, content); err != nil {
		return types.Update{}, err
	}

	return types.Update{
		CompletedSections: 1,
		GeneratedSections: []types.SectionRef{{Title: unit.Title, Index: unit.Index}},
	}, nil
}

// assemble reads the reconciled artifact (segments sorted by order key) and
// writes the full document to the Record's output path.
func (d *Drafter) assemble(_ context.Context, rec types.Record) (types.Update, error) {
	body, err := d.Artifacts.Read(rec.ArtifactKey)
	if err != nil {
		return types.Update{}, fmt.Errorf("reading sections: %w", err)
	}

	doc := fmt.Sprintf("# %s\n\n%s", rec.Topic, body)

	if dir := filepath.Dir(rec.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.Update{}, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(rec.OutputPath, []byte(doc), 0o644); err != nil {
		return types.Update{}, fmt.Errorf("writing document: %w", err)
	}

	fmt.Fprintf(d.progress(), "assembled %s (%d section(s))\n", rec.OutputPath, len(rec.GeneratedSections))
	return types.Update{}, nil
}

// acceptQuery injects the resume input under the Record's query field.
func acceptQuery(input string) types.Update {
	return types.Update{QAQuery: types.StrPtr(input)}
}

// think produces the reasoning scratchpad for the user's question.
func (d *Drafter) think(ctx context.Context, rec types.Record) (types.Update, error) {
	if strings.TrimSpace(rec.QAQuery) == "" {
		return types.Update{}, fmt.Errorf("query is required")
	}

	doc, err := os.ReadFile(rec.OutputPath)
	if err != nil {
		return types.Update{}, fmt.Errorf("reading document: %w", err)
	}

	prompt, err := renderThinkerPrompt(string(doc), rec.QAQuery)
	if err != nil {
		return types.Update{}, err
	}

	text, err := genai.CallWithRetry(ctx, d.Client, prompt, d.Config.AI.MaxRetries)
	if err != nil {
		return types.Update{}, err
	}
	return types.Update{ThoughtProcess: types.StrPtr(text)}, nil
}

// answer synthesizes the scratchpad into the final answer.
func (d *Drafter) answer(ctx context.Context, rec types.Record) (types.Update, error) {
	prompt, err := renderAnswerPrompt(rec.ThoughtProcess, rec.QAQuery)
	if err != nil {
		return types.Update{}, err
	}

	text, err := genai.CallWithRetry(ctx, d.Client, prompt, d.Config.AI.MaxRetries)
	if err != nil {
		return types.Update{}, err
	}
	return types.Update{FinalAnswer: types.StrPtr(text)}, nil
}
