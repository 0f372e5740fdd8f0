// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// SectionRef identifies one generated section by its position in the outline.
// The section text itself lives in the artifact store under the same index;
// only the reference travels through the Record.
type SectionRef struct {
	// Title is the section heading from the outline.
	Title string `json:"title" yaml:"title"`

	// Index is the section's position in the planned outline. It doubles as
	// the artifact order key so assembly can restore outline order regardless
	// of worker completion order.
	Index int `json:"index" yaml:"index"`
}

// Record is the single mutable state threaded through every pipeline step.
// Steps receive the current Record and return a partial Update; the pipeline
// merges and advances. Workers never see the Record (see WorkUnit).
type Record struct {
	// Topic is the document subject supplied by the caller.
	Topic string `json:"topic" yaml:"topic"`

	// OutputPath is where the assembled document is written.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// ArtifactKey locates section output in the artifact store.
	ArtifactKey string `json:"artifact_key" yaml:"artifact_key"`

	// SectionsToWrite is the planned outline: one title per section.
	SectionsToWrite []string `json:"sections_to_write" yaml:"sections_to_write"`

	// CompletedSections counts finished writer units. Accumulator: deltas
	// from concurrent workers are summed after the join.
	CompletedSections int `json:"completed_sections" yaml:"completed_sections"`

	// GeneratedSections lists references to written sections. Accumulator:
	// contributions are appended in completion order; Index restores
	// outline order.
	GeneratedSections []SectionRef `json:"generated_sections" yaml:"generated_sections"`

	// QAQuery is the user question supplied at resume.
	QAQuery string `json:"qa_query,omitempty" yaml:"qa_query,omitempty"`

	// ThoughtProcess is the reasoning scratchpad produced before answering.
	ThoughtProcess string `json:"thought_process,omitempty" yaml:"thought_process,omitempty"`

	// FinalAnswer is the synthesized answer to QAQuery.
	FinalAnswer string `json:"final_answer,omitempty" yaml:"final_answer,omitempty"`
}

// Update is a partial Record update returned by a pipeline step or a fan-out
// worker. Accumulator fields (CompletedSections, GeneratedSections) merge
// order-independently; scalar fields are pointer-valued so "unset" and
// "set to empty" stay distinct.
type Update struct {
	// SectionsToWrite replaces the planned outline when non-nil.
	SectionsToWrite []string

	// CompletedSections is a delta added to the Record counter.
	CompletedSections int

	// GeneratedSections is appended to the Record's section references.
	GeneratedSections []SectionRef

	// QAQuery sets the user question when non-nil.
	QAQuery *string

	// ThoughtProcess sets the reasoning scratchpad when non-nil.
	ThoughtProcess *string

	// FinalAnswer sets the synthesized answer when non-nil.
	FinalAnswer *string
}

// AccumulatorOnly reports an error naming every non-accumulator field the
// update sets. Worker updates must pass this check before merging so a
// misbehaving worker cannot clobber unrelated Record state.
func (u Update) AccumulatorOnly() error {
	var fields []string
	if u.SectionsToWrite != nil {
		fields = append(fields, "sections_to_write")
	}
	if u.QAQuery != nil {
		fields = append(fields, "qa_query")
	}
	if u.ThoughtProcess != nil {
		fields = append(fields, "thought_process")
	}
	if u.FinalAnswer != nil {
		fields = append(fields, "final_answer")
	}
	if len(fields) > 0 {
		return fmt.Errorf("update sets non-accumulator fields: %s", strings.Join(fields, ", "))
	}
	return nil
}

// Apply merges an update into the Record and returns the result. Accumulator
// fields add/append; scalar fields overwrite only when set. Apply never
// mutates the receiver.
func (r Record) Apply(u Update) Record {
	r.CompletedSections += u.CompletedSections
	if len(u.GeneratedSections) > 0 {
		merged := make([]SectionRef, 0, len(r.GeneratedSections)+len(u.GeneratedSections))
		merged = append(merged, r.GeneratedSections...)
		merged = append(merged, u.GeneratedSections...)
		r.GeneratedSections = merged
	}
	if u.SectionsToWrite != nil {
		r.SectionsToWrite = u.SectionsToWrite
	}
	if u.QAQuery != nil {
		r.QAQuery = *u.QAQuery
	}
	if u.ThoughtProcess != nil {
		r.ThoughtProcess = *u.ThoughtProcess
	}
	if u.FinalAnswer != nil {
		r.FinalAnswer = *u.FinalAnswer
	}
	return r
}

// WorkUnit is the isolated input for one fan-out worker. It deliberately
// carries only the unit's own parameters plus the artifact key needed to
// place output; a worker never receives the full Record.
type WorkUnit struct {
	// Title is the section heading the worker writes.
	Title string `json:"title" yaml:"title"`

	// Index is the section's outline position and artifact order key.
	Index int `json:"index" yaml:"index"`

	// ArtifactKey locates the artifact the worker appends to.
	ArtifactKey string `json:"artifact_key" yaml:"artifact_key"`
}

// ID returns a short identifier for the unit, used in failure reports.
func (w WorkUnit) ID() string {
	return fmt.Sprintf("%02d %q", w.Index, w.Title)
}

// StrPtr returns a pointer to s. Helper for building scalar Update fields.
func StrPtr(s string) *string {
	return &s
}
