package domain

import "time"

// Job is one instantiation of a Configuration: a concrete set of Tasks and
// Products with their own parameter bindings, running toward completion
// independently of the Configuration it came from.
type Job struct {
	ID         JobID
	ConfigID   string // empty if the job was created ad hoc, not from a stored configuration
	ScheduleID string // empty if created interactively rather than by a schedule
	Owner      string
	Comment    string
	Target     string
	CreateTime time.Time

	// FinishedTime is set once the job reaches a terminal state; zero
	// while the job is still running. Drives the report retention sweep.
	FinishedTime time.Time

	Params         ParamMap
	Tasks          map[string]*Task
	Products       map[string]*Product
	AllowedRunners map[string]struct{}

	// TaskOrder preserves the configuration's declaration order, since
	// Tasks is unordered and priority ties break on declaration order
	// ("Tie-break among ready tasks").
	TaskOrder []string
}

// NewJob creates an empty job shell; callers populate Tasks/Products from a
// Configuration via internal/definitions before running it.
func NewJob(id JobID, configID, owner, target string, params ParamMap) *Job {
	return &Job{
		ID:             id,
		ConfigID:       configID,
		Owner:          owner,
		Target:         target,
		CreateTime:     time.Now(),
		Params:         params,
		Tasks:          make(map[string]*Task),
		Products:       make(map[string]*Product),
		AllowedRunners: make(map[string]struct{}),
	}
}

// OrderedTasks returns the job's tasks in declaration order.
func (j *Job) OrderedTasks() []*Task {
	out := make([]*Task, 0, len(j.TaskOrder))
	for _, name := range j.TaskOrder {
		if t, ok := j.Tasks[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// IsFinal reports whether the job has reached a terminal state: every task
// is DONE or CANCELLED and every shadow extraction run it spawned has also
// reached a terminal state ("Job termination").
func (j *Job) IsFinal() bool {
	for _, t := range j.Tasks {
		if !t.IsTerminal() {
			return false
		}
		for _, run := range t.Runs {
			if run.ShadowRunID == "" {
				continue
			}
			shadow := j.findRun(run.ShadowRunID)
			if shadow == nil || !shadow.IsTerminal() {
				return false
			}
		}
	}
	return true
}

func (j *Job) findRun(id RunID) *TaskRun {
	for _, t := range j.Tasks {
		for _, run := range t.Runs {
			if run.ID == id {
				return run
			}
		}
	}
	return nil
}

// Result is the worst-case merge of every task's result. Returns false
// if the job is not yet final or has no tasks.
func (j *Job) Result() (Result, bool) {
	if !j.IsFinal() || len(j.Tasks) == 0 {
		return "", false
	}
	var worst Result
	found := false
	for _, t := range j.Tasks {
		r, ok := t.Result()
		if !ok {
			continue
		}
		if !found {
			worst = r
			found = true
			continue
		}
		worst = WorstResult(worst, r)
	}
	if !found {
		return "", false
	}
	return worst, true
}

// ReadyTasks returns tasks whose inputs are all DONE/BLOCKED and that have
// not yet been started, ordered by descending priority then declaration
// order ("Task readiness").
func (j *Job) ReadyTasks(inputsOf func(taskName string) []string) []*Task {
	var ready []*Task
	for _, t := range j.OrderedTasks() {
		if t.LastRun() != nil {
			continue
		}
		if j.inputsSatisfied(inputsOf(t.Name)) {
			ready = append(ready, t)
		}
	}
	for i := 1; i < len(ready); i++ {
		for k := i; k > 0 && less(ready[k], ready[k-1]); k-- {
			ready[k], ready[k-1] = ready[k-1], ready[k]
		}
	}
	return ready
}

func less(a, b *Task) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.InsertionOrder < b.InsertionOrder
}

func (j *Job) inputsSatisfied(inputs []string) bool {
	for _, name := range inputs {
		p, ok := j.Products[name]
		if !ok || p.State == ProductWaiting {
			return false
		}
	}
	return true
}
