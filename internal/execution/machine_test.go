package execution

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agentflow/internal/workflow"
	"agentflow/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMachine(t *testing.T, mode models.ExecutionMode, steps ...models.Step) *Machine {
	t.Helper()
	plan, err := workflow.Compile(&models.Workflow{Name: "wf", ExecutionMode: mode, Steps: steps})
	require.NoError(t, err)
	return NewMachine(plan, WithClock(func() time.Time { return fixedNow }))
}

func twoStep(t *testing.T, mode models.ExecutionMode) *Machine {
	return newMachine(t, mode,
		models.Step{ID: "a", AgentID: 1, Name: "first"},
		models.Step{ID: "b", AgentID: 2, Name: "second", Dependencies: []string{"a"}},
	)
}

func result(id string, status models.StepStatus) models.StepResult {
	return models.StepResult{StepID: id, Status: status}
}

// assertTimestamps checks that completedAt is set exactly for terminal statuses.
func assertTimestamps(t *testing.T, e *models.Execution) {
	t.Helper()
	assert.Equal(t, e.Status.IsTerminal(), e.CompletedAt != nil, "completed_at vs status %s", e.Status)
	if e.Status != models.ExecutionCompleted {
		assert.Nil(t, e.Output)
	}
	if e.Status != models.ExecutionFailed {
		assert.Nil(t, e.Error)
	}
}

func TestSerialScenario(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, json.RawMessage(`{"text":"hi"}`))
	assert.Equal(t, models.ExecutionPending, e.Status)
	assertTimestamps(t, e)

	require.NoError(t, m.Start(e))
	assert.Equal(t, models.ExecutionRunning, e.Status)
	require.NotNil(t, e.StartedAt)
	assert.Equal(t, fixedNow, *e.StartedAt)
	assertTimestamps(t, e)

	err := m.RecordStepResult(e, result("b", models.StepCompleted))
	var ov *OrderingViolationError
	require.True(t, errors.As(err, &ov))
	assert.Equal(t, "b", ov.StepID)
	assert.Equal(t, []string{"a"}, ov.Pending)
	assert.Empty(t, e.StepResults)

	require.NoError(t, m.RecordStepResult(e, result("a", models.StepCompleted)))
	require.NoError(t, m.RecordStepResult(e, result("b", models.StepCompleted)))

	require.NoError(t, m.Finish(e, Completed(json.RawMessage(`{"summary":"done"}`))))
	assert.Equal(t, models.ExecutionCompleted, e.Status)
	require.NotNil(t, e.CompletedAt)
	assert.JSONEq(t, `{"summary":"done"}`, string(e.Output))
	require.Len(t, e.StepResults, 2)
	assert.Equal(t, "a", e.StepResults[0].StepID)
	assert.Equal(t, "b", e.StepResults[1].StepID)
	assertTimestamps(t, e)
}

func TestParallelIgnoresOrdering(t *testing.T) {
	m := twoStep(t, models.ExecutionModeParallel)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))

	require.NoError(t, m.RecordStepResult(e, result("b", models.StepCompleted)))
	require.NoError(t, m.RecordStepResult(e, result("a", models.StepCompleted)))
	assert.Equal(t, "b", e.StepResults[0].StepID)
}

func TestConditionalIsOrdered(t *testing.T) {
	m := twoStep(t, models.ExecutionModeConditional)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))

	var ov *OrderingViolationError
	assert.ErrorAs(t, m.RecordStepResult(e, result("b", models.StepCompleted)), &ov)
}

func TestSerialRequiresTerminalDependency(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))

	require.NoError(t, m.RecordStepResult(e, result("a", models.StepRunning)))
	var ov *OrderingViolationError
	assert.ErrorAs(t, m.RecordStepResult(e, result("b", models.StepRunning)), &ov)

	// A failed or skipped dependency is terminal and unblocks its dependents.
	require.NoError(t, m.RecordStepResult(e, result("a", models.StepSkipped)))
	require.NoError(t, m.RecordStepResult(e, result("b", models.StepRunning)))
}

func TestRecordReplacesByStepID(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))

	require.NoError(t, m.RecordStepResult(e, result("a", models.StepRunning)))
	require.NoError(t, m.RecordStepResult(e, models.StepResult{StepID: "a", Status: models.StepCompleted, Output: json.RawMessage(`1`)}))

	require.Len(t, e.StepResults, 1)
	assert.Equal(t, models.StepCompleted, e.StepResults[0].Status)
	assert.JSONEq(t, `1`, string(e.StepResults[0].Output))
}

func TestRecordCannotReopenStepWithDependents(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))
	require.NoError(t, m.RecordStepResult(e, result("a", models.StepCompleted)))
	require.NoError(t, m.RecordStepResult(e, result("b", models.StepCompleted)))

	err := m.RecordStepResult(e, result("a", models.StepRunning))
	var ov *OrderingViolationError
	require.ErrorAs(t, err, &ov)
	assert.Equal(t, "a", ov.StepID)
	assert.Equal(t, []string{"b"}, ov.Dependents)
	assert.Equal(t, models.StepCompleted, e.StepResults[0].Status, "the record is unchanged")

	// Terminal replacements keep dependents satisfied.
	require.NoError(t, m.RecordStepResult(e, result("a", models.StepFailed)))
	assert.Equal(t, models.StepFailed, e.StepResults[0].Status)

	// A leaf step may be reopened.
	require.NoError(t, m.RecordStepResult(e, result("b", models.StepRunning)))
}

func TestParallelAllowsReopen(t *testing.T) {
	m := twoStep(t, models.ExecutionModeParallel)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))
	require.NoError(t, m.RecordStepResult(e, result("a", models.StepCompleted)))
	require.NoError(t, m.RecordStepResult(e, result("b", models.StepCompleted)))
	assert.NoError(t, m.RecordStepResult(e, result("a", models.StepRunning)))
}

func TestRecordUnknownStep(t *testing.T) {
	m := twoStep(t, models.ExecutionModeParallel)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))

	var us *UnknownStepError
	assert.ErrorAs(t, m.RecordStepResult(e, result("zzz", models.StepCompleted)), &us)
	assert.Empty(t, e.StepResults)
}

func TestRecordRequiresRunning(t *testing.T) {
	m := twoStep(t, models.ExecutionModeParallel)

	pending := models.NewExecution(1, nil)
	var it *InvalidTransitionError
	assert.ErrorAs(t, m.RecordStepResult(pending, result("a", models.StepCompleted)), &it)

	cancelled := models.NewExecution(1, nil)
	require.NoError(t, m.Start(cancelled))
	require.NoError(t, m.Cancel(cancelled))
	assert.ErrorAs(t, m.RecordStepResult(cancelled, result("a", models.StepCompleted)), &it)
	assert.Equal(t, models.ExecutionCancelled, it.Current)
}

func TestSecondFinishFails(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))
	require.NoError(t, m.Finish(e, Completed(json.RawMessage(`"ok"`))))

	err := m.Finish(e, Failed("late"))
	var it *InvalidTransitionError
	require.ErrorAs(t, err, &it)
	assert.Equal(t, models.ExecutionCompleted, it.Current)
	assert.Equal(t, models.ExecutionFailed, it.Attempted)
	assert.Equal(t, models.ExecutionCompleted, e.Status)
	assert.Nil(t, e.Error)
}

func TestFinishFailedClearsOutput(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)
	e.Output = json.RawMessage(`"stale"`)
	require.NoError(t, m.Start(e))

	require.NoError(t, m.Finish(e, Failed("agent timed out")))
	assert.Equal(t, models.ExecutionFailed, e.Status)
	require.NotNil(t, e.Error)
	assert.Equal(t, "agent timed out", *e.Error)
	assertTimestamps(t, e)
}

func TestFinishFailedDefaultsMessage(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))

	require.NoError(t, m.Finish(e, Failed("")))
	assert.Equal(t, DefaultFailureMessage, *e.Error)
}

func TestFinishRequiresRunning(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)

	var it *InvalidTransitionError
	assert.ErrorAs(t, m.Finish(e, Completed(nil)), &it)
	assert.Equal(t, models.ExecutionPending, e.Status)
	assertTimestamps(t, e)
}

func TestFinishZeroOutcome(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))

	var it *InvalidTransitionError
	assert.ErrorAs(t, m.Finish(e, Outcome{}), &it)
	assert.Equal(t, models.ExecutionRunning, e.Status)
}

func TestFinishCancelledOutcome(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)
	require.NoError(t, m.Start(e))

	require.NoError(t, m.Finish(e, Cancelled()))
	assert.Equal(t, models.ExecutionCancelled, e.Status)
	assertTimestamps(t, e)
}

func TestCancelFromPending(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	e := models.NewExecution(1, nil)

	require.NoError(t, m.Cancel(e))
	assert.Equal(t, models.ExecutionCancelled, e.Status)
	assert.Nil(t, e.StartedAt)
	assert.Nil(t, e.Output)
	assert.Nil(t, e.Error)
	assertTimestamps(t, e)

	var it *InvalidTransitionError
	assert.ErrorAs(t, m.Start(e), &it)
	assert.ErrorAs(t, m.Cancel(e), &it)
}

func TestStartKeepsExistingStartedAt(t *testing.T) {
	m := twoStep(t, models.ExecutionModeSerial)
	earlier := fixedNow.Add(-time.Hour)
	e := models.NewExecution(1, nil)
	e.StartedAt = &earlier

	require.NoError(t, m.Start(e))
	assert.Equal(t, earlier, *e.StartedAt)

	var it *InvalidTransitionError
	require.ErrorAs(t, m.Start(e), &it)
	assert.Equal(t, models.ExecutionRunning, it.Current)
}

func TestNoTransitionLeavesTerminal(t *testing.T) {
	m := twoStep(t, models.ExecutionModeParallel)
	outcomes := []Outcome{Completed(nil), Failed("x"), Cancelled()}

	for _, o := range outcomes {
		t.Run(string(o.Status()), func(t *testing.T) {
			e := models.NewExecution(1, nil)
			require.NoError(t, m.Start(e))
			require.NoError(t, m.Finish(e, o))
			snapshot := e.Clone()

			var it *InvalidTransitionError
			assert.ErrorAs(t, m.Start(e), &it)
			assert.ErrorAs(t, m.Cancel(e), &it)
			assert.ErrorAs(t, m.Finish(e, Completed(nil)), &it)
			assert.ErrorAs(t, m.RecordStepResult(e, result("a", models.StepCompleted)), &it)
			assert.Equal(t, snapshot, e)
		})
	}
}
