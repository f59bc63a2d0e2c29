package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorstResult(t *testing.T) {
	tests := []struct {
		a, b, want Result
	}{
		{ResultOK, ResultWarning, ResultWarning},
		{ResultError, ResultOK, ResultError},
		{ResultCancelled, ResultError, ResultCancelled},
		{ResultInspect, ResultInspect, ResultInspect},
		{Result(""), ResultOK, ResultOK},
		{ResultOK, Result(""), ResultOK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WorstResult(tt.a, tt.b))
	}
}

func TestTaskRunLifecycle(t *testing.T) {
	run := NewWaitingRun(RunID("job-1/build/0"))
	assert.Equal(t, RunWaiting, run.State)
	assert.False(t, run.IsTerminal())

	start := time.Now()
	run.Start("runner-1", start)
	assert.Equal(t, RunRunning, run.State)
	assert.Equal(t, "runner-1", run.RunnerID)
	assert.False(t, run.IsTerminal())

	stop := start.Add(time.Minute)
	run.Finish(ResultOK, "built ok", stop)
	assert.True(t, run.IsTerminal())
	assert.Equal(t, ResultOK, run.Result)
	assert.Equal(t, stop, run.StopTime)
}

func TestTaskRunCancel(t *testing.T) {
	run := NewWaitingRun(RunID("job-1/build/0"))
	run.Cancel(time.Now())
	assert.True(t, run.IsTerminal())
	assert.Equal(t, ResultCancelled, run.Result)
	assert.Equal(t, RunCancelled, run.State)
}
