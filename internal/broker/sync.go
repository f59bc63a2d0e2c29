package broker

import (
	"sync"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
)

// SyncRequest is the decoded form of an agent's long-poll request body
// (<request> element).
type SyncRequest struct {
	RunnerID       string
	RunnerVersion  string
	Target         string
	Capabilities   []string
	ReportedRun    *domain.RunID // nil if the agent believes itself idle
	ReportedShadow *domain.RunID
	ExitOnIdle     bool
}

// Assignment is the descriptor handed back to an agent that was given new
// work (<assignment> element).
type Assignment struct {
	RunID        domain.RunID
	TaskName     string
	Wrapper      string
	Params       domain.ParamMap
	Inputs       map[string]string // product name -> locator
	Outputs      []string
	Resources    map[string]*domain.Resource // spec ref -> resource
	TimeoutMins  int
}

// SyncOutcome is exactly one of: Wait, Exit, Assignment, Abort.
type SyncOutcome struct {
	WaitSeconds int
	Exit        bool
	Abort       bool
	Assignment  *Assignment
}

// Dispatcher is implemented by internal/engine: it owns the job graph the
// broker's sync handler needs to reconcile agent state and find new work,
// keeping the broker itself job-agnostic (it only knows resources).
type Dispatcher interface {
	// IsRunAssignedTo reports whether the controller believes runID is
	// currently assigned to runnerID (a live RUNNING run).
	IsRunAssignedTo(runID domain.RunID, runnerID string) bool

	// AbandonRun marks runID ERROR as abandoned, releasing its resources.
	AbandonRun(runID domain.RunID)

	// ShadowAssignmentFor returns the shadow (extraction) run bound to
	// runnerID, if any, already reserved.
	ShadowAssignmentFor(runnerID string) *Assignment

	// NextReadyAssignment finds the oldest ready task across unfinished
	// jobs whose target is satisfied by capabilities, reserves it against
	// runner, and returns its assignment. Returns nil if nothing is ready.
	NextReadyAssignment(runner *domain.TaskRunner, capabilities []string, target string) *Assignment
}

// minWaitSeconds/backoffWaitSeconds are the two "N" values of's
// <wait seconds="N"/>: eager agents get a short poll interval, while an
// agent told to keep polling with nothing pending gets a longer one.
const (
	minWaitSeconds     = 5
	backoffWaitSeconds = 30
)

// Server serialises sync handling per agent (a single writer lock per
// agent) on top of a Broker and a Dispatcher.
type Server struct {
	broker     *Broker
	dispatcher Dispatcher
	runners    TaskRunnerStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewServer(b *Broker, d Dispatcher, runners TaskRunnerStore) *Server {
	return &Server{broker: b, dispatcher: d, runners: runners, locks: make(map[string]*sync.Mutex)}
}

func (s *Server) lockFor(runnerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[runnerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[runnerID] = l
	}
	return l
}

// Sync handles one long-poll cycle for req.RunnerID,
func (s *Server) Sync(req SyncRequest, now time.Time) SyncOutcome {
	lock := s.lockFor(req.RunnerID)
	lock.Lock()
	defer lock.Unlock()

	runner, ok := s.runners.Get(req.RunnerID)
	if !ok {
		return SyncOutcome{Abort: true}
	}
	runner.LastSync = now
	runner.Version = req.RunnerVersion
	runner.Capabilities = toSet(req.Capabilities)

	// Step 2: reconcile reported state against the controller's belief.
	switch {
	case req.ReportedRun == nil && runner.RunningRunID != "":
		s.dispatcher.AbandonRun(runner.RunningRunID)
		runner.RunningRunID = ""
	case req.ReportedRun != nil && runner.RunningRunID == "":
		_ = s.runners.Put(runner)
		return SyncOutcome{Abort: true}
	case req.ReportedRun != nil && !s.dispatcher.IsRunAssignedTo(*req.ReportedRun, req.RunnerID):
		_ = s.runners.Put(runner)
		return SyncOutcome{Abort: true}
	}

	if req.ExitOnIdle && runner.IsIdle() {
		runner.ExitOnIdle = true
		_ = s.runners.Put(runner)
		return SyncOutcome{Exit: true}
	}
	runner.ExitOnIdle = req.ExitOnIdle

	if !runner.IsIdle() {
		_ = s.runners.Put(runner)
		return SyncOutcome{WaitSeconds: minWaitSeconds}
	}

	if shadow := s.dispatcher.ShadowAssignmentFor(req.RunnerID); shadow != nil {
		runner.RunningRunID = shadow.RunID
		_ = s.runners.Put(runner)
		return SyncOutcome{Assignment: shadow}
	}

	if a := s.dispatcher.NextReadyAssignment(runner, req.Capabilities, req.Target); a != nil {
		runner.RunningRunID = a.RunID
		_ = s.runners.Put(runner)
		return SyncOutcome{Assignment: a}
	}

	_ = s.runners.Put(runner)
	return SyncOutcome{WaitSeconds: backoffWaitSeconds}
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}
