package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/cloud-scan/controlcenter/internal/broker"
	"github.com/cloud-scan/controlcenter/internal/domain"
)

// pendingShadow is a queued extraction run awaiting its bound runner's next
// sync ("First, any shadow run" takes priority over an ordinary assignment).
type pendingShadow struct {
	jobID    domain.JobID
	taskName string
	runID    domain.RunID
}

var _ broker.Dispatcher = (*Engine)(nil)

// shadowState is kept separate from Engine's other fields only to group
// the small bit of mutable queueing state the Dispatcher methods touch.
type shadowState struct {
	mu      sync.Mutex
	byAgent map[string]pendingShadow
}

// enqueueShadowRun appends an extraction run to t,
// binding it to reporter so the next sync from that agent picks it up.
func (e *Engine) enqueueShadowRun(j *domain.Job, t *domain.Task, sourceRun *domain.TaskRun, reporter string) {
	shadow := t.AppendRun(j.ID)
	sourceRun.ShadowRunID = shadow.ID
	e.shadows().mu.Lock()
	e.shadows().byAgent[reporter] = pendingShadow{jobID: j.ID, taskName: t.Name, runID: shadow.ID}
	e.shadows().mu.Unlock()
}

func (e *Engine) shadows() *shadowState {
	if e.shadowQueue == nil {
		e.shadowQueue = &shadowState{byAgent: make(map[string]pendingShadow)}
	}
	return e.shadowQueue
}

// IsRunAssignedTo implements broker.Dispatcher.
func (e *Engine) IsRunAssignedTo(runID domain.RunID, runnerID string) bool {
	for _, j := range e.jobs.All() {
		for _, t := range j.Tasks {
			if run := t.LastRun(); run != nil && run.ID == runID {
				return run.State == domain.RunRunning && run.RunnerID == runnerID
			}
		}
	}
	return false
}

// AbandonRun implements broker.Dispatcher: step 2, "agent
// reports idle but controller thinks run R is assigned".
func (e *Engine) AbandonRun(runID domain.RunID) {
	now := time.Now()
	for _, j := range e.jobs.All() {
		for _, t := range j.Tasks {
			run := t.LastRun()
			if run == nil || run.ID != runID || run.IsTerminal() {
				continue
			}
			run.Finish(domain.ResultError, "abandoned: runner reported idle", now)
			e.emitTaskChanged(j, t)
			if err := e.broker.Release(runID); err != nil {
				e.logger.WithError(err).WithField("run", runID).Error("releasing abandoned run's resources")
			}
			if e.checkTermination(j, now) {
				e.emitFinalised(j)
			}
			_ = e.jobs.Put(j)
			return
		}
	}
}

// ShadowAssignmentFor implements broker.Dispatcher.
func (e *Engine) ShadowAssignmentFor(runnerID string) *broker.Assignment {
	e.shadows().mu.Lock()
	pending, ok := e.shadows().byAgent[runnerID]
	if ok {
		delete(e.shadows().byAgent, runnerID)
	}
	e.shadows().mu.Unlock()
	if !ok {
		return nil
	}

	j, ok := e.jobs.Get(string(pending.jobID))
	if !ok {
		return nil
	}
	t, ok := j.Tasks[pending.taskName]
	if !ok {
		return nil
	}
	runner, ok := e.runners.Get(runnerID)
	if !ok {
		return nil
	}
	run := findRun(t, pending.runID)
	if run == nil {
		return nil
	}
	run.Start(runnerID, time.Now())
	e.emitTaskChanged(j, t)
	_ = e.jobs.Put(j)
	return e.buildAssignment(j, t, run, nil, runner)
}

// NextReadyAssignment implements broker.Dispatcher's job-graph side of
// assignment: the oldest ready task in any unfinished job whose target is
// in the runner's capabilities.
func (e *Engine) NextReadyAssignment(runner *domain.TaskRunner, capabilities []string, target string) *broker.Assignment {
	capSet := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		capSet[c] = struct{}{}
	}

	jobs := e.jobs.All()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreateTime.Before(jobs[j].CreateTime) })

	for _, j := range jobs {
		if j.IsFinal() {
			continue
		}
		if j.Target != "" {
			if _, ok := capSet[j.Target]; !ok {
				continue
			}
		}
		ready := j.ReadyTasks(func(name string) []string {
			if t, ok := j.Tasks[name]; ok {
				return t.Inputs
			}
			return nil
		})
		for _, t := range ready {
			allowed := t.AllowedRunners
			if len(allowed) == 0 {
				allowed = j.AllowedRunners
			}
			if len(allowed) > 0 {
				if _, ok := allowed[runner.ID]; !ok {
					continue
				}
			}
			run := domain.NewWaitingRun(domain.NewRunID(j.ID, t.Name, len(t.Runs)))
			assigned, err := e.broker.Reserve(t.Claim, runner, run.ID, j.ID)
			if err != nil {
				continue
			}
			t.Runs = append(t.Runs, run)
			run.Start(runner.ID, time.Now())
			e.emitTaskChanged(j, t)
			_ = e.jobs.Put(j)
			return e.buildAssignment(j, t, run, assigned, runner)
		}
	}
	return nil
}

func (e *Engine) buildAssignment(j *domain.Job, t *domain.Task, run *domain.TaskRun, assigned map[string]*domain.Resource, runner *domain.TaskRunner) *broker.Assignment {
	fw := e.frameworkOf(t)
	wrapper := ""
	if fw != nil {
		wrapper = fw.Wrapper
	}
	inputs := make(map[string]string)
	for _, in := range t.Inputs {
		if p, ok := j.Products[in]; ok {
			inputs[in] = p.DefaultLocator
		}
	}
	return &broker.Assignment{
		RunID: run.ID, TaskName: t.Name, Wrapper: wrapper,
		Params: t.Params, Inputs: inputs, Outputs: t.Outputs,
		Resources: assigned, TimeoutMins: 0,
	}
}

func findRun(t *domain.Task, id domain.RunID) *domain.TaskRun {
	for _, r := range t.Runs {
		if r.ID == id {
			return r
		}
	}
	return nil
}
