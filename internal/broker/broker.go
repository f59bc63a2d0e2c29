// Package broker implements the resource broker & dispatcher:
// matching ResourceClaims to FREE resources via a minimum-cost bipartite
// assignment, reserving/releasing them against a TaskRun or Job, and
// serving the agent long-poll sync protocol.
package broker

import (
	"errors"
	"sync"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
	log "github.com/sirupsen/logrus"
)

var errNoAssignment = errors.New("broker: no assignment satisfies the claim using only free resources")

// ResourceStore is the subset of store.Store[*domain.Resource] the broker
// needs: read everything, write one resource back after a reservation
// change.
type ResourceStore interface {
	All() []*domain.Resource
	Put(*domain.Resource) error
}

// TaskRunnerStore is the TaskRunner-specific equivalent, kept separate from
// ResourceStore because TaskRunners are their own record kind.
type TaskRunnerStore interface {
	All() []*domain.TaskRunner
	Get(id string) (*domain.TaskRunner, bool)
	Put(*domain.TaskRunner) error
}

// ResTypeLookup answers whether a resource type is reserved per-job
// ("per-job exclusivity").
type ResTypeLookup func(resType string) (perJob bool)

// Broker owns resource assignment state. One instance serves the whole
// controller; its mutex is the "global broker lock for the matching step"
// requires.
type Broker struct {
	mu sync.Mutex

	resources ResourceStore
	runners   TaskRunnerStore
	resTypes  ResTypeLookup

	// jobHolds tracks, for per-job-exclusive resources, which job a
	// reservation belongs to, so Release(runID) leaves it in place and
	// only ReleaseJob clears it.
	jobHolds map[string]domain.JobID // resource id -> job id

	warnAfter time.Duration
	lostAfter time.Duration

	logger *log.Entry
}

// New builds a Broker. warnAfter/lostAfter are the two connection-status
// thresholds of
func New(resources ResourceStore, runners TaskRunnerStore, resTypes ResTypeLookup, warnAfter, lostAfter time.Duration) *Broker {
	return &Broker{
		resources: resources,
		runners:   runners,
		resTypes:  resTypes,
		jobHolds:  make(map[string]domain.JobID),
		warnAfter: warnAfter,
		lostAfter: lostAfter,
		logger:    log.WithField("component", "broker"),
	}
}

// catalog adapts the broker's live stores to the Match function's view,
// filtering by type and including TaskRunners under sf.tr.
type catalog struct{ b *Broker }

func (c catalog) ResourcesOfType(resType string) []*domain.Resource {
	if resType == domain.TaskRunnerResType {
		runners := c.b.runners.All()
		out := make([]*domain.Resource, len(runners))
		for i, r := range runners {
			out[i] = &r.Resource
		}
		return out
	}
	var out []*domain.Resource
	for _, r := range c.b.resources.All() {
		if r.Type == resType {
			out = append(out, r)
		}
	}
	return out
}

func (b *Broker) runnerStatus(id string) domain.ConnectionStatus {
	r, ok := b.runners.Get(id)
	if !ok {
		return domain.ConnectionUnknown
	}
	return r.ConnectionStatus(time.Now(), b.warnAfter, b.lostAfter)
}

// Match computes (but does not reserve) an assignment for claim, per
// diagnose=true requests the reason list even on success
// or partial failure, for "why is this task waiting" UI.
func (b *Broker) Match(claim domain.ResourceClaim, diagnose bool) MatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Match(claim, catalog{b}, b.runnerStatus, diagnose)
}

// Reserve matches claim, forcing runner as the sole candidate for the
// claim's SF_TR spec, and on success flips every assigned resource's
// reserved-by to holder (a RunID) and persists the change. Per-job
// exclusive resource types are additionally recorded under jobID so
// Release leaves them held until ReleaseJob.
func (b *Broker) Reserve(claim domain.ResourceClaim, runner *domain.TaskRunner, holder domain.RunID, jobID domain.JobID) (map[string]*domain.Resource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	claim = claim.EnsureTaskRunnerSpec()
	nonRunner := domain.NewResourceClaim(removeRef(claim.Specs(), domain.TaskRunnerRef)...)

	result := Match(nonRunner, catalog{b}, b.runnerStatus, false)
	if nonRunner.Len() > 0 && len(result.Assignment) != nonRunner.Len() {
		return nil, errNoAssignment
	}

	result.Assignment[domain.TaskRunnerRef] = &runner.Resource

	for ref, r := range result.Assignment {
		r.Reserve(string(holder))
		if ref != domain.TaskRunnerRef {
			if err := b.resources.Put(r); err != nil {
				return nil, err
			}
			if b.resTypes(r.Type) {
				b.jobHolds[r.ID] = jobID
			}
		}
	}
	runner.Reserve(string(holder))
	if err := b.runners.Put(runner); err != nil {
		return nil, err
	}

	b.logger.WithField("run", holder).WithField("count", len(result.Assignment)).Info("reserved resources")
	return result.Assignment, nil
}

// Release clears reserved-by on every resource reserved under runID,
// except resources held per-job-exclusive (those wait for ReleaseJob).
// Idempotent: releasing an already-free run id is a no-op.
func (b *Broker) Release(runID domain.RunID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	holder := string(runID)
	for _, r := range b.resources.All() {
		if r.ReservedBy != holder {
			continue
		}
		if _, heldForJob := b.jobHolds[r.ID]; heldForJob {
			continue
		}
		r.Free()
		if err := b.resources.Put(r); err != nil {
			return err
		}
	}
	for _, runner := range b.runners.All() {
		if runner.ReservedBy != holder {
			continue
		}
		runner.Free()
		runner.RunningRunID = ""
		if err := b.runners.Put(runner); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseJob clears reserved-by on every per-job-exclusive resource held
// for jobID, called at job termination.
func (b *Broker) ReleaseJob(jobID domain.JobID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.resources.All() {
		held, ok := b.jobHolds[r.ID]
		if !ok || held != jobID {
			continue
		}
		delete(b.jobHolds, r.ID)
		r.Free()
		if err := b.resources.Put(r); err != nil {
			return err
		}
	}
	return nil
}

func removeRef(specs []domain.ResourceSpec, ref string) []domain.ResourceSpec {
	out := specs[:0:0]
	for _, s := range specs {
		if s.Ref != ref {
			out = append(out, s)
		}
	}
	return out
}
