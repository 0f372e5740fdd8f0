// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/draft-engine/internal/checkpoint"
	"github.com/pdiddy/draft-engine/pkg/types"
)

// threeStepPipeline builds plan → await-query → finish, recording step order.
func threeStepPipeline(t *testing.T, store checkpoint.Store, ran *[]string) *Pipeline {
	t.Helper()
	p, err := New(store,
		Step{Name: "plan", Run: func(_ context.Context, rec types.Record) (types.Update, error) {
			*ran = append(*ran, "plan")
			return types.Update{SectionsToWrite: []string{"A", "B"}}, nil
		}},
		Step{Name: "await-query", Resume: func(input string) types.Update {
			return types.Update{QAQuery: types.StrPtr(input)}
		}},
		Step{Name: "finish", Run: func(_ context.Context, rec types.Record) (types.Update, error) {
			*ran = append(*ran, "finish")
			return types.Update{FinalAnswer: types.StrPtr("answer to " + rec.QAQuery)}, nil
		}},
	)
	require.NoError(t, err)
	return p
}

func TestRun_SuspendsAtCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	var ran []string
	p := threeStepPipeline(t, store, &ran)

	out, err := p.Run(context.Background(), "s1", types.Record{Topic: "MSA"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, out.Status)
	assert.Equal(t, "await-query", out.Step)
	assert.Equal(t, []string{"plan"}, ran)

	cp, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "await-query", cp.Step)
	assert.Equal(t, []string{"A", "B"}, cp.Record.SectionsToWrite)
	assert.False(t, cp.Consumed)
}

func TestResume_ContinuesAfterSuspension(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	var ran []string
	p := threeStepPipeline(t, store, &ran)

	_, err := p.Run(context.Background(), "s1", types.Record{Topic: "MSA"})
	require.NoError(t, err)

	out, err := p.Resume(context.Background(), "s1", "What is the term?")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "What is the term?", out.Record.QAQuery)
	assert.Equal(t, "answer to What is the term?", out.Record.FinalAnswer)

	// Prior steps did not re-run.
	assert.Equal(t, []string{"plan", "finish"}, ran)
}

// TestResume_Transparency: suspending and resuming yields the same Record as
// an equivalent pipeline that injects the input inline at the same point.
func TestResume_Transparency(t *testing.T) {
	ctx := context.Background()

	var ranA, ranB []string
	suspended := threeStepPipeline(t, checkpoint.NewMemoryStore(), &ranA)
	outA, err := suspended.Run(ctx, "s1", types.Record{Topic: "MSA"})
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, outA.Status)
	outA, err = suspended.Resume(ctx, "s1", "V")
	require.NoError(t, err)

	inline, err := New(checkpoint.NewMemoryStore(),
		Step{Name: "plan", Run: func(_ context.Context, rec types.Record) (types.Update, error) {
			ranB = append(ranB, "plan")
			return types.Update{SectionsToWrite: []string{"A", "B"}}, nil
		}},
		Step{Name: "inject", Run: func(_ context.Context, rec types.Record) (types.Update, error) {
			return types.Update{QAQuery: types.StrPtr("V")}, nil
		}},
		Step{Name: "finish", Run: func(_ context.Context, rec types.Record) (types.Update, error) {
			ranB = append(ranB, "finish")
			return types.Update{FinalAnswer: types.StrPtr("answer to " + rec.QAQuery)}, nil
		}},
	)
	require.NoError(t, err)
	outB, err := inline.Run(ctx, "s2", types.Record{Topic: "MSA"})
	require.NoError(t, err)

	assert.Equal(t, outB.Record, outA.Record)
}

func TestResume_DuplicateRejected(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	var ran []string
	p := threeStepPipeline(t, store, &ran)

	_, err := p.Run(context.Background(), "s1", types.Record{})
	require.NoError(t, err)

	first, err := p.Resume(context.Background(), "s1", "Q")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, first.Status)

	_, err = p.Resume(context.Background(), "s1", "Q")
	var rerr *ResumeError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, checkpoint.ErrConsumed)

	// The consumed checkpoint is untouched by the rejected resume.
	cp, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, cp.Consumed)
	assert.Equal(t, []string{"A", "B"}, cp.Record.SectionsToWrite)
}

func TestResume_UnknownSession(t *testing.T) {
	var ran []string
	p := threeStepPipeline(t, checkpoint.NewMemoryStore(), &ran)

	_, err := p.Resume(context.Background(), "ghost", "Q")
	var rerr *ResumeError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	assert.Empty(t, ran)
}

func TestRun_StepFailureNamesStep(t *testing.T) {
	boom := errors.New("boom")
	p, err := New(checkpoint.NewMemoryStore(),
		Step{Name: "plan", Run: func(_ context.Context, rec types.Record) (types.Update, error) {
			return types.Update{}, nil
		}},
		Step{Name: "write", Run: func(_ context.Context, rec types.Record) (types.Update, error) {
			return types.Update{}, boom
		}},
	)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "s1", types.Record{})
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "write", serr.Step)
	assert.ErrorIs(t, err, boom)
}

// TestRun_FailureBeforeSuspendLeavesNoCheckpoint: an abort ahead of the
// suspension point must not leave a resumable session behind.
func TestRun_FailureBeforeSuspendLeavesNoCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p, err := New(store,
		Step{Name: "write", Run: func(_ context.Context, rec types.Record) (types.Update, error) {
			return types.Update{}, errors.New("permanent")
		}},
		Step{Name: "await-query", Resume: func(input string) types.Update {
			return types.Update{QAQuery: types.StrPtr(input)}
		}},
	)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "s1", types.Record{})
	require.Error(t, err)

	_, err = store.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestRun_MultipleSuspensionPoints(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	p, err := New(store,
		Step{Name: "first-input", Resume: func(input string) types.Update {
			return types.Update{QAQuery: types.StrPtr(input)}
		}},
		Step{Name: "second-input", Resume: func(input string) types.Update {
			return types.Update{FinalAnswer: types.StrPtr(input)}
		}},
	)
	require.NoError(t, err)

	out, err := p.Run(ctx, "s1", types.Record{})
	require.NoError(t, err)
	assert.Equal(t, "first-input", out.Step)

	out, err = p.Resume(ctx, "s1", "one")
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, out.Status)
	assert.Equal(t, "second-input", out.Step)

	out, err = p.Resume(ctx, "s1", "two")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "one", out.Record.QAQuery)
	assert.Equal(t, "two", out.Record.FinalAnswer)
}

func TestNew_Validation(t *testing.T) {
	run := func(_ context.Context, rec types.Record) (types.Update, error) {
		return types.Update{}, nil
	}
	resume := func(input string) types.Update { return types.Update{} }
	store := checkpoint.NewMemoryStore()

	_, err := New(nil, Step{Name: "a", Run: run})
	assert.Error(t, err)

	_, err = New(store)
	assert.Error(t, err)

	_, err = New(store, Step{Run: run})
	assert.Error(t, err)

	_, err = New(store, Step{Name: "a", Run: run}, Step{Name: "a", Run: run})
	assert.Error(t, err)

	_, err = New(store, Step{Name: "a"})
	assert.Error(t, err)

	_, err = New(store, Step{Name: "a", Run: run, Resume: resume})
	assert.Error(t, err)
}
