package domain

import "time"

// RunState is the lifecycle state of a single TaskRun attempt.
type RunState string

const (
	RunWaiting   RunState = "WAITING"
	RunRunning   RunState = "RUNNING"
	RunDone      RunState = "DONE"
	RunCancelled RunState = "CANCELLED"
)

// Result is a task/run outcome, ordered worst-case:
// OK < WARNING < INSPECT < ERROR < CANCELLED, where CANCELLED only
// dominates if at least one run was actually cancelled.
type Result string

const (
	ResultOK        Result = "ok"
	ResultWarning   Result = "warning"
	ResultInspect   Result = "inspect"
	ResultError     Result = "error"
	ResultCancelled Result = "cancelled"
)

var resultRank = map[Result]int{
	ResultOK:        0,
	ResultWarning:   1,
	ResultInspect:   2,
	ResultError:     3,
	ResultCancelled: 4,
}

// WorstResult returns the worse (higher-ranked) of a and b. Unknown/empty
// results rank below ResultOK so they never mask a real result.
func WorstResult(a, b Result) Result {
	ra, okA := resultRank[a]
	rb, okB := resultRank[b]
	if !okA {
		return b
	}
	if !okB {
		return a
	}
	if ra >= rb {
		return a
	}
	return b
}

// TaskRun is a single execution attempt of a Task.
type TaskRun struct {
	ID         RunID
	RunnerID   string
	State      RunState
	StartTime  time.Time
	StopTime   time.Time
	Result     Result // zero value until the run reaches DONE/CANCELLED
	Summary    string
	ReportURL  string
	Alert      bool
	AbortFlag  bool // set by AbortTask while RUNNING; consumed on next sync

	// ShadowRunID, if non-empty, is the id of the extraction shadow run
	// enqueued after this run completed.
	ShadowRunID RunID
}

// NewWaitingRun creates a run in the WAITING state, not yet assigned.
func NewWaitingRun(id RunID) *TaskRun {
	return &TaskRun{ID: id, State: RunWaiting}
}

// Start transitions WAITING -> RUNNING, binding the runner. A TaskRun's
// assigned runner, once set, is never reassigned — callers must not call
// Start twice on the same run.
func (r *TaskRun) Start(runnerID string, now time.Time) {
	r.RunnerID = runnerID
	r.State = RunRunning
	r.StartTime = now
}

// Finish transitions RUNNING -> DONE, recording the result.
func (r *TaskRun) Finish(result Result, summary string, now time.Time) {
	r.State = RunDone
	r.Result = result
	r.Summary = summary
	r.StopTime = now
}

// Cancel transitions directly to CANCELLED, from WAITING or RUNNING.
func (r *TaskRun) Cancel(now time.Time) {
	r.State = RunCancelled
	r.Result = ResultCancelled
	r.StopTime = now
}

// IsTerminal reports whether the run will never change state again.
func (r *TaskRun) IsTerminal() bool {
	return r.State == RunDone || r.State == RunCancelled
}
