// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// End-to-end pipeline tests against a scripted mock oracle.

package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/draft-engine/internal/artifact"
	"github.com/pdiddy/draft-engine/internal/checkpoint"
	"github.com/pdiddy/draft-engine/internal/fanout"
	"github.com/pdiddy/draft-engine/internal/workflow"
	"github.com/pdiddy/draft-engine/pkg/types"
)

func init() {
	// Use a tiny retry backoff so flaky-worker tests finish quickly.
	fanout.BackoffBase = 1 * time.Millisecond
}

// mockOracle answers by prompt kind: outline, section, thinker, or answer.
// failSections maps a section title to the number of times its writer prompt
// fails before succeeding.
type mockOracle struct {
	mu           sync.Mutex
	sections     []string
	failSections map[string]int
	attempts     map[string]int
}

func newMockOracle(sections ...string) *mockOracle {
	return &mockOracle{
		sections:     sections,
		failSections: make(map[string]int),
		attempts:     make(map[string]int),
	}
}

func (m *mockOracle) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case strings.Contains(prompt, "document planning system"):
		data, _ := json.Marshal(outlineResponse{Sections: m.sections})
		return string(data), nil

	case strings.Contains(prompt, "document section:"):
		title := m.sectionTitle(prompt)
		m.attempts[title]++
		if m.attempts[title] <= m.failSections[title] {
			return "", errors.New("transient generation error")
		}
		return fmt.Sprintf("Body of %s.", title), nil

	case strings.Contains(prompt, "reasoning scratchpad"):
		return "- answer is in the relevant section\n- logic: read it", nil

	case strings.Contains(prompt, "Thought Process:"):
		return "The final answer.", nil
	}
	return "", fmt.Errorf("unexpected prompt: %.60s", prompt)
}

func (m *mockOracle) sectionTitle(prompt string) string {
	for _, title := range m.sections {
		if strings.Contains(prompt, "'"+title+"'") {
			return title
		}
	}
	return ""
}

func newTestDrafter(t *testing.T, oracle *mockOracle) (*Drafter, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := artifact.NewStore(filepath.Join(dir, "artifacts"))
	require.NoError(t, err)

	d := &Drafter{
		Client:    oracle,
		Artifacts: store,
		Config: types.WorkflowConfig{
			AI:     types.AIConfig{MaxRetries: 3},
			FanOut: types.FanOutConfig{MaxRetries: 3},
		},
	}
	return d, dir
}

func startRecord(dir string) types.Record {
	return types.Record{
		Topic:       "Enterprise SaaS Master Service Agreement",
		OutputPath:  filepath.Join(dir, "output", "document.md"),
		ArtifactKey: "legal-doc-001",
	}
}

// TestPipeline_EndToEnd covers the full scenario: 5 sections, one flaky
// worker succeeding on its 3rd attempt, suspend, resume with a query, and the
// two sequential reasoning steps.
func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()

	oracle := newMockOracle("Definitions", "Term", "Fees", "Liability", "Governing Law")
	oracle.failSections["Fees"] = 2

	d, dir := newTestDrafter(t, oracle)
	store := checkpoint.NewMemoryStore()
	p, err := d.Pipeline(store)
	require.NoError(t, err)

	out, err := p.Run(ctx, "legal-doc-001", startRecord(dir))
	require.NoError(t, err)
	require.Equal(t, workflow.StatusSuspended, out.Status)
	assert.Equal(t, StepAwaitQuery, out.Step)
	assert.Equal(t, 5, out.Record.CompletedSections)
	assert.Len(t, out.Record.GeneratedSections, 5)
	assert.Equal(t, 3, oracle.attempts["Fees"])

	// The assembled document restores outline order regardless of worker
	// completion order.
	doc, err := os.ReadFile(out.Record.OutputPath)
	require.NoError(t, err)
	text := string(doc)
	assert.True(t, strings.HasPrefix(text, "# Enterprise SaaS Master Service Agreement\n"))
	last := -1
	for _, title := range oracle.sections {
		pos := strings.Index(text, "## "+title)
		require.GreaterOrEqual(t, pos, 0, "missing section %q", title)
		assert.Greater(t, pos, last, "section %q out of order", title)
		last = pos
	}

	final, err := p.Resume(ctx, "legal-doc-001", "What law governs?")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, final.Status)
	assert.NotEmpty(t, final.Record.ThoughtProcess)
	assert.Equal(t, "The final answer.", final.Record.FinalAnswer)
	assert.Equal(t, "What law governs?", final.Record.QAQuery)

	// Unrelated fields survive the pause/resume untouched.
	assert.Equal(t, "Enterprise SaaS Master Service Agreement", final.Record.Topic)
	assert.Equal(t, 5, final.Record.CompletedSections)
}

// TestPipeline_WorkerFailureAbortsBeforeCheckpoint: a permanently failed unit
// under the abort policy surfaces a WorkerFailure naming the unit, and no
// checkpoint is created for the downstream suspension.
func TestPipeline_WorkerFailureAbortsBeforeCheckpoint(t *testing.T) {
	ctx := context.Background()

	oracle := newMockOracle("Definitions", "Term")
	oracle.failSections["Term"] = 100

	d, dir := newTestDrafter(t, oracle)
	d.Config.FanOut.MaxRetries = 2

	store := checkpoint.NewMemoryStore()
	p, err := d.Pipeline(store)
	require.NoError(t, err)

	_, err = p.Run(ctx, "s1", startRecord(dir))
	var serr *workflow.StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepWrite, serr.Step)

	var wf *fanout.WorkerFailure
	require.ErrorAs(t, err, &wf)
	require.Len(t, wf.Failures, 1)
	assert.Equal(t, "Term", wf.Failures[0].Unit.Title)

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestPipeline_ProceedPolicyAssemblesPartialDocument(t *testing.T) {
	ctx := context.Background()

	oracle := newMockOracle("Definitions", "Term", "Fees")
	oracle.failSections["Term"] = 100

	d, dir := newTestDrafter(t, oracle)
	d.Config.FanOut.MaxRetries = 1
	d.Config.FanOut.OnFailure = types.PolicyProceed

	p, err := d.Pipeline(checkpoint.NewMemoryStore())
	require.NoError(t, err)

	out, err := p.Run(ctx, "s1", startRecord(dir))
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSuspended, out.Status)
	assert.Equal(t, 2, out.Record.CompletedSections)

	doc, err := os.ReadFile(out.Record.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "## Definitions")
	assert.NotContains(t, string(doc), "## Term\n")
}

func TestPipeline_PlanningFailureHaltsBeforeFanOut(t *testing.T) {
	oracle := newMockOracle() // empty outline
	d, dir := newTestDrafter(t, oracle)
	d.Config.AI.MaxRetries = 1

	p, err := d.Pipeline(checkpoint.NewMemoryStore())
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "s1", startRecord(dir))
	var perr *workflow.PlanningError
	require.ErrorAs(t, err, &perr)

	// No sections were attempted.
	assert.Empty(t, oracle.attempts)
}

func TestPipeline_DuplicateResume(t *testing.T) {
	ctx := context.Background()
	oracle := newMockOracle("Definitions")
	d, dir := newTestDrafter(t, oracle)

	p, err := d.Pipeline(checkpoint.NewMemoryStore())
	require.NoError(t, err)

	_, err = p.Run(ctx, "s1", startRecord(dir))
	require.NoError(t, err)

	first, err := p.Resume(ctx, "s1", "Q")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusCompleted, first.Status)

	_, err = p.Resume(ctx, "s1", "Q")
	var rerr *workflow.ResumeError
	require.ErrorAs(t, err, &rerr)
}

func TestBuildWorkUnits_Deterministic(t *testing.T) {
	rec := types.Record{
		ArtifactKey:     "doc",
		SectionsToWrite: []string{"A", "B", "C"},
	}

	first := BuildWorkUnits(rec)
	second := BuildWorkUnits(rec)
	assert.Equal(t, first, second)

	require.Len(t, first, 3)
	assert.Equal(t, types.WorkUnit{Title: "B", Index: 1, ArtifactKey: "doc"}, first[1])
}

func TestThink_RequiresQuery(t *testing.T) {
	oracle := newMockOracle("A")
	d, dir := newTestDrafter(t, oracle)

	_, err := d.think(context.Background(), types.Record{OutputPath: filepath.Join(dir, "doc.md")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}
