// Package engine implements the job lifecycle: creating jobs from
// configurations, task readiness and assignment, completion, abort,
// retry, and termination. The zombie-run sweep uses a poll-then-reconcile
// worker shape.
package engine

import (
	"fmt"
	"time"

	"github.com/cloud-scan/controlcenter/internal/broker"
	"github.com/cloud-scan/controlcenter/internal/ctlerr"
	"github.com/cloud-scan/controlcenter/internal/domain"
	log "github.com/sirupsen/logrus"
)

// JobStore is the subset of store.Store[*domain.Job] the engine needs.
type JobStore interface {
	Get(id string) (*domain.Job, bool)
	All() []*domain.Job
	Put(*domain.Job) error
}

// Definitions resolves the Framework/TaskDef pair behind a configured task
// and looks up product definitions by id. Implemented by
// internal/definitions.Graph.
type Definitions interface {
	Resolve(taskDefID string) (*domain.TaskDef, *domain.Framework, error)
	ProductDef(id string) (domain.ProductDef, bool)
}

// Engine owns job lifecycle transitions. One instance per controller.
type Engine struct {
	jobs    JobStore
	defs    Definitions
	broker  *broker.Broker
	runners broker.TaskRunnerStore

	shadowQueue *shadowState
	observers   []Observer
	logger      *log.Entry
}

// Observer receives the events lists: job created, task state
// changed, product available/blocked, job finalised.
type Observer interface {
	JobCreated(j *domain.Job)
	TaskStateChanged(j *domain.Job, t *domain.Task)
	ProductStateChanged(j *domain.Job, p *domain.Product)
	JobFinalised(j *domain.Job)
}

func New(jobs JobStore, defs Definitions, b *broker.Broker, runners broker.TaskRunnerStore) *Engine {
	return &Engine{jobs: jobs, defs: defs, broker: b, runners: runners, logger: log.WithField("component", "engine")}
}

func (e *Engine) AddObserver(o Observer) { e.observers = append(e.observers, o) }

func (e *Engine) emitJobCreated(j *domain.Job) {
	for _, o := range e.observers {
		o.JobCreated(j)
	}
}
func (e *Engine) emitTaskChanged(j *domain.Job, t *domain.Task) {
	for _, o := range e.observers {
		o.TaskStateChanged(j, t)
	}
}
func (e *Engine) emitProductChanged(j *domain.Job, p *domain.Product) {
	for _, o := range e.observers {
		o.ProductStateChanged(j, p)
	}
}
func (e *Engine) emitFinalised(j *domain.Job) {
	for _, o := range e.observers {
		o.JobFinalised(j)
	}
}

// CreateJob instantiates config into a new Job ("Job creation").
func (e *Engine) CreateJob(id domain.JobID, config *domain.Configuration, owner string, now time.Time) (*domain.Job, error) {
	params := config.JobParams.Clone()
	j := domain.NewJob(id, config.ID, owner, config.Target, params)
	j.Comment = config.Comment
	for ref := range config.AllowedRunners {
		j.AllowedRunners[ref] = struct{}{}
	}

	producersByProduct := make(map[string][]string)

	order := 0
	for name, ct := range config.Tasks {
		taskDef, fw, err := e.defs.Resolve(ct.TaskDefID)
		if err != nil {
			return nil, ctlerr.InvalidRequestf("configuration %s: task %s: %w", config.ID, name, err)
		}
		claim := fw.Claim.Merge(taskDef.Claim).EnsureTaskRunnerSpec()
		params := fw.Params.Clone()
		for k, v := range taskDef.Params {
			params[k] = v
		}
		for k, v := range ct.Params {
			params[k] = v
		}
		allowed := ct.AllowedRunners
		if len(allowed) == 0 {
			allowed = make(map[string]struct{})
		}

		t := &domain.Task{
			Name: name, TaskDefID: taskDef.ID, TaskDefVersion: taskDef.Version,
			FrameworkID: fw.ID, FrameworkVer: fw.Version,
			Priority: ct.Priority, Params: params, AllowedRunners: allowed,
			Inputs: fw.Inputs, Outputs: fw.Outputs, Claim: claim,
			InsertionOrder: order,
		}
		order++
		j.Tasks[name] = t
		j.TaskOrder = append(j.TaskOrder, name)

		for _, out := range fw.Outputs {
			producersByProduct[out] = append(producersByProduct[out], name)
		}
	}

	allProducts := make(map[string]struct{})
	for name := range producersByProduct {
		allProducts[name] = struct{}{}
	}
	for _, t := range j.Tasks {
		for _, in := range t.Inputs {
			allProducts[in] = struct{}{}
		}
	}

	for name := range allProducts {
		def, ok := e.defs.ProductDef(name)
		if !ok {
			return nil, ctlerr.InvalidRequestf("REFERENCE: configuration %s: product %s does not exist", config.ID, name)
		}
		local := def.Local
		if _, ok := config.LocalAgents[name]; ok {
			local = true
		}
		p := domain.NewProduct(name, def.Type, local, producersByProduct[name])
		if loc, ok := config.InputLocators[name]; ok {
			p.MarkDoneWithLocator("", loc)
		} else if def.Type == domain.ProductToken {
			p.MarkDoneToken()
		}
		if runner, ok := config.LocalAgents[name]; ok {
			p.AgentID = runner
		}
		j.Products[name] = p
	}

	if err := e.jobs.Put(j); err != nil {
		return nil, fmt.Errorf("engine: persisting job %s: %w", id, err)
	}
	e.emitJobCreated(j)
	e.logger.WithField("job", id).WithField("tasks", len(j.Tasks)).Info("job created")
	return j, nil
}
