package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob() *Job {
	j := NewJob(JobID("job-1"), "cfg-1", "alice", "linux", ParamMap{})
	j.Tasks["build"] = &Task{Name: "build", Priority: 1, InsertionOrder: 0}
	j.Tasks["test"] = &Task{Name: "test", Priority: 1, InsertionOrder: 1}
	j.TaskOrder = []string{"build", "test"}
	return j
}

func TestJobOrderedTasksPreservesDeclarationOrder(t *testing.T) {
	j := newTestJob()
	ordered := j.OrderedTasks()
	require.Len(t, ordered, 2)
	assert.Equal(t, "build", ordered[0].Name)
	assert.Equal(t, "test", ordered[1].Name)
}

func TestJobIsFinalRequiresAllTasksTerminal(t *testing.T) {
	j := newTestJob()
	assert.False(t, j.IsFinal())

	now := time.Now()
	for _, t2 := range j.Tasks {
		run := t2.AppendRun(j.ID)
		run.Start("runner-1", now)
		run.Finish(ResultOK, "", now)
	}
	assert.True(t, j.IsFinal())
}

func TestJobIsFinalWaitsOnShadowRuns(t *testing.T) {
	j := newTestJob()
	now := time.Now()
	for _, t2 := range j.Tasks {
		run := t2.AppendRun(j.ID)
		run.Start("runner-1", now)
		run.Finish(ResultOK, "", now)
	}

	build := j.Tasks["build"]
	shadow := build.AppendRun(j.ID)
	build.Runs[0].ShadowRunID = shadow.ID

	assert.False(t, j.IsFinal(), "job must wait for the shadow extraction run")

	shadow.Start("runner-1", now)
	shadow.Finish(ResultOK, "", now)
	assert.True(t, j.IsFinal())
}

func TestJobResultIsWorstCaseAcrossTasks(t *testing.T) {
	j := newTestJob()
	now := time.Now()

	build := j.Tasks["build"].AppendRun(j.ID)
	build.Start("runner-1", now)
	build.Finish(ResultOK, "", now)

	test := j.Tasks["test"].AppendRun(j.ID)
	test.Start("runner-1", now)
	test.Finish(ResultError, "failed", now)

	result, ok := j.Result()
	require.True(t, ok)
	assert.Equal(t, ResultError, result)
}

func TestJobResultNotFinalReturnsFalse(t *testing.T) {
	j := newTestJob()
	_, ok := j.Result()
	assert.False(t, ok)
}

func TestJobReadyTasksOrdersByPriorityThenInsertion(t *testing.T) {
	j := NewJob(JobID("job-1"), "cfg-1", "alice", "linux", ParamMap{})
	j.Tasks["low"] = &Task{Name: "low", Priority: 0, InsertionOrder: 0}
	j.Tasks["high"] = &Task{Name: "high", Priority: 5, InsertionOrder: 1}
	j.Tasks["mid"] = &Task{Name: "mid", Priority: 5, InsertionOrder: 0}
	j.TaskOrder = []string{"low", "high", "mid"}

	ready := j.ReadyTasks(func(string) []string { return nil })
	require.Len(t, ready, 3)
	assert.Equal(t, "mid", ready[0].Name)
	assert.Equal(t, "high", ready[1].Name)
	assert.Equal(t, "low", ready[2].Name)
}

func TestJobReadyTasksExcludesStartedAndBlockedTasks(t *testing.T) {
	j := newTestJob()
	j.Tasks["build"].AppendRun(j.ID) // started, no longer ready

	j.Products["artifact"] = &Product{Name: "artifact", State: ProductWaiting}
	inputsOf := func(name string) []string {
		if name == "test" {
			return []string{"artifact"}
		}
		return nil
	}

	ready := j.ReadyTasks(inputsOf)
	assert.Empty(t, ready, "build is started and test's input is still waiting")
}
