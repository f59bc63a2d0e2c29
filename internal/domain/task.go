package domain

// Task is a task within a job: a name bound to a versioned TaskDef and
// Framework, its priority, parameter overrides, and the sequence of
// TaskRuns that have attempted it.
type Task struct {
	Name           string
	TaskDefID      string
	TaskDefVersion string
	FrameworkID    string
	FrameworkVer   string
	Priority       int
	Params         ParamMap // effective, cached at instantiation time
	AllowedRunners map[string]struct{}

	Inputs  []string
	Outputs []string
	Claim   ResourceClaim

	Runs []*TaskRun

	// InsertionOrder breaks priority ties deterministically within a job
	// ("Tie-break among ready tasks").
	InsertionOrder int
}

// LastRun returns the most recent run, or nil if none exists yet.
func (t *Task) LastRun() *TaskRun {
	if len(t.Runs) == 0 {
		return nil
	}
	return t.Runs[len(t.Runs)-1]
}

// ActiveRun returns the run currently WAITING or RUNNING, if any.
func (t *Task) ActiveRun() *TaskRun {
	run := t.LastRun()
	if run == nil || run.IsTerminal() {
		return nil
	}
	return run
}

// IsTerminal reports whether the task has no further work possible: its
// last run reached DONE or CANCELLED and nothing will append another.
// Retries are a deliberate external action (engine.RetryTask), so a task
// with a DONE run in ResultError state is still considered terminal here —
// it is up to the caller to retry explicitly.
func (t *Task) IsTerminal() bool {
	run := t.LastRun()
	return run != nil && run.IsTerminal()
}

// Result is the result of the task's last run once that run is terminal
// ("T.result equals the result of its last terminal run"); earlier runs
// do not affect it. A task with no runs yet, or whose last run is still
// active, has no result.
func (t *Task) Result() (Result, bool) {
	run := t.LastRun()
	if run == nil || !run.IsTerminal() {
		return "", false
	}
	return run.Result, true
}

// AppendRun appends and returns a fresh WAITING run, used for retries
// ("Retry"), extraction shadow runs, and blocked-input
// cancellations, none of which reset upstream products.
func (t *Task) AppendRun(jobID JobID) *TaskRun {
	run := NewWaitingRun(NewRunID(jobID, t.Name, len(t.Runs)))
	t.Runs = append(t.Runs, run)
	return run
}
