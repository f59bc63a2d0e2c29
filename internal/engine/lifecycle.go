package engine

import (
	"time"

	"github.com/cloud-scan/controlcenter/internal/ctlerr"
	"github.com/cloud-scan/controlcenter/internal/domain"
)

// TaskDone completes a run ("Completion" steps 1-7). reporter
// must be the runner id that holds the active run.
func (e *Engine) TaskDone(jobID domain.JobID, taskName, reporter string, result domain.Result, summary string, outputs map[string]string, now time.Time) error {
	j, ok := e.jobs.Get(string(jobID))
	if !ok {
		return ctlerr.InvalidRequestf("engine: unknown job %s", jobID)
	}
	t, ok := j.Tasks[taskName]
	if !ok {
		return ctlerr.InvalidRequestf("engine: job %s has no task %s", jobID, taskName)
	}
	run := t.ActiveRun()
	if run == nil || run.RunnerID != reporter {
		return ctlerr.InvalidRequestf("MISMATCH: %s is not the active runner for %s/%s", reporter, jobID, taskName)
	}

	run.Finish(result, summary, now)
	e.emitTaskChanged(j, t)

	for productName, locator := range outputs {
		if p, ok := j.Products[productName]; ok {
			p.MarkDoneWithLocator(taskName, locator)
			e.emitProductChanged(j, p)
		}
	}
	for _, out := range t.Outputs {
		p, ok := j.Products[out]
		if !ok || p.IsTerminal() {
			continue
		}
		if e.allProducersTerminal(j, p) {
			p.MarkBlocked()
			e.emitProductChanged(j, p)
		}
	}

	e.propagateBlocking(j, now)

	if err := e.broker.Release(run.ID); err != nil {
		return err
	}

	if fw := e.frameworkOf(t); fw != nil && fw.Extractor && result != domain.ResultError {
		e.enqueueShadowRun(j, t, run, reporter)
	}

	finalised := e.checkTermination(j, now)
	if err := e.jobs.Put(j); err != nil {
		return err
	}
	if finalised {
		e.emitFinalised(j)
	}
	return nil
}

// frameworkOf is a seam the constructor fills via Definitions; kept as a
// method so lifecycle.go and dispatch.go share one lookup path.
func (e *Engine) frameworkOf(t *domain.Task) *domain.Framework {
	_, fw, err := e.defs.Resolve(t.TaskDefID)
	if err != nil {
		return nil
	}
	return fw
}

func (e *Engine) allProducersTerminal(j *domain.Job, p *domain.Product) bool {
	for _, producer := range p.Producers {
		pt, ok := j.Tasks[producer]
		if !ok || !pt.IsTerminal() {
			return false
		}
	}
	return true
}

// propagateBlocking implements "BLOCKED propagates: any consumer task with
// a BLOCKED input transitions directly to CANCELLED without running; its
// output products recursively block". Runs to a fixed point
// since cancelling a task can block further products.
func (e *Engine) propagateBlocking(j *domain.Job, now time.Time) {
	for {
		changed := false
		for _, t := range j.Tasks {
			if t.LastRun() != nil {
				continue
			}
			if e.hasBlockedInput(j, t) {
				run := t.AppendRun(j.ID)
				run.Cancel(now)
				e.emitTaskChanged(j, t)
				changed = true
				for _, out := range t.Outputs {
					if p, ok := j.Products[out]; ok && !p.IsTerminal() {
						p.MarkBlocked()
						e.emitProductChanged(j, p)
					}
				}
			}
		}
		if !changed {
			return
		}
	}
}

func (e *Engine) hasBlockedInput(j *domain.Job, t *domain.Task) bool {
	for _, in := range t.Inputs {
		if p, ok := j.Products[in]; ok && p.State == domain.ProductBlocked {
			return true
		}
	}
	return false
}

// AbortTask implements "Abort".
func (e *Engine) AbortTask(jobID domain.JobID, taskName, user string, now time.Time) error {
	j, ok := e.jobs.Get(string(jobID))
	if !ok {
		return ctlerr.InvalidRequestf("engine: unknown job %s", jobID)
	}
	t, ok := j.Tasks[taskName]
	if !ok {
		return ctlerr.InvalidRequestf("engine: job %s has no task %s", jobID, taskName)
	}
	run := t.ActiveRun()
	if run == nil {
		return ctlerr.InvalidRequestf("engine: task %s/%s has no active run to abort", jobID, taskName)
	}
	switch run.State {
	case domain.RunWaiting:
		run.Cancel(now)
		e.emitTaskChanged(j, t)
		for _, out := range t.Outputs {
			if p, ok := j.Products[out]; ok && !p.IsTerminal() {
				p.MarkBlocked()
				e.emitProductChanged(j, p)
			}
		}
		e.propagateBlocking(j, now)
		e.checkTermination(j, now)
	case domain.RunRunning:
		run.AbortFlag = true
	}
	return e.jobs.Put(j)
}

// RetryTask appends a fresh run to a task whose last run did not succeed,
// "Retry": upstream products are not reset.
func (e *Engine) RetryTask(jobID domain.JobID, taskName string) (*domain.TaskRun, error) {
	j, ok := e.jobs.Get(string(jobID))
	if !ok {
		return nil, ctlerr.InvalidRequestf("engine: unknown job %s", jobID)
	}
	t, ok := j.Tasks[taskName]
	if !ok {
		return nil, ctlerr.InvalidRequestf("engine: job %s has no task %s", jobID, taskName)
	}
	if !t.IsTerminal() {
		return nil, ctlerr.InvalidRequestf("engine: task %s/%s is not terminal", jobID, taskName)
	}
	if res, _ := t.Result(); res == domain.ResultOK {
		return nil, ctlerr.InvalidRequestf("engine: task %s/%s succeeded, nothing to retry", jobID, taskName)
	}
	run := t.AppendRun(j.ID)
	e.emitTaskChanged(j, t)
	if err := e.jobs.Put(j); err != nil {
		return nil, err
	}
	return run, nil
}

// IsJobFinal implements scheduler.JobFinder, used for CONTINUOUSLY
// schedules' backpressure check against their previous batch.
func (e *Engine) IsJobFinal(id domain.JobID) (final bool, found bool) {
	j, ok := e.jobs.Get(string(id))
	if !ok {
		return false, false
	}
	return j.IsFinal(), true
}

// checkTermination re-evaluates job finality ("Termination") and
// persists the terminal marker implicitly by leaving the job's tasks in
// their terminal states; returns whether the job just became final.
func (e *Engine) checkTermination(j *domain.Job, now time.Time) bool {
	if !j.IsFinal() {
		return false
	}
	if j.FinishedTime.IsZero() {
		j.FinishedTime = now
	}
	if err := e.broker.ReleaseJob(j.ID); err != nil {
		e.logger.WithError(err).WithField("job", j.ID).Error("releasing per-job resources at termination")
	}
	return true
}
