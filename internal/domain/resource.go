package domain

import "time"

// ConnectionStatus classifies how recently a resource (in practice, only a
// TaskRunner) has been heard from.
type ConnectionStatus string

const (
	ConnectionConnected ConnectionStatus = "CONNECTED"
	ConnectionWarning   ConnectionStatus = "WARNING"
	ConnectionLost      ConnectionStatus = "LOST"
	ConnectionUnknown   ConnectionStatus = "UNKNOWN"
)

// StatusLevel is the broker's diagnostic classification of a resource for
// "reason to wait" reporting.
type StatusLevel int

const (
	StatusFree StatusLevel = iota
	StatusReserved
	StatusSuspended
	StatusLost
)

func (l StatusLevel) String() string {
	switch l {
	case StatusFree:
		return "FREE"
	case StatusReserved:
		return "RESERVED"
	case StatusSuspended:
		return "SUSPENDED"
	case StatusLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// Resource is a concrete instance of a ResType. Grounded on
// original_source/src/softfab/resourcelib.py: ResourceBase/Resource.
type Resource struct {
	ID           string
	Type         string
	Capabilities map[string]struct{}
	Locator      string
	Description  string
	Suspended    bool

	// ReservedBy is empty, a user id (manual reservation), or a run id.
	ReservedBy string

	ChangedTime time.Time
	ChangedUser string

	// Secret is an HMAC key, populated only for RepositoryResType
	// resources, used by internal/webhook to verify inbound signatures.
	Secret string
}

// Cost is the tie-breaking cost used by the broker's assignment: richer
// resources are held back for specs that actually need the extra
// capabilities. Grounded on resourcelib.py: ResourceBase.cost.
func (r *Resource) Cost() int { return len(r.Capabilities) }

// IsReserved reports whether some run or user currently holds this resource.
func (r *Resource) IsReserved() bool { return r.ReservedBy != "" }

// IsFree reports whether the resource is available for a new reservation,
// ignoring connection status (callers combine this with a freshness check
// for TaskRunners).
func (r *Resource) IsFree() bool {
	return !r.IsReserved() && !r.Suspended
}

// SetSuspend records a manual suspend/resume, stamping who and when.
// Grounded on resourcelib.py: ResourceBase.setSuspend.
func (r *Resource) SetSuspend(suspended bool, user string, now time.Time) {
	if r.Suspended == suspended {
		return
	}
	r.Suspended = suspended
	r.ChangedTime = now
	r.ChangedUser = user
}

// Reserve assigns the resource to a holder (user id or run id). It is the
// caller's (broker's) responsibility to have verified the resource was
// free; a double-reserve here is a programming error, logged by the
// caller, not by this type.
func (r *Resource) Reserve(holder string) {
	r.ReservedBy = holder
}

// Free releases the reservation. No-op if not reserved — requires
// release on an already-released resource to be a no-op, not an error.
func (r *Resource) Free() {
	r.ReservedBy = ""
}

// CopyState carries live reservation/suspend state from an old record onto
// this one when a resource definition is edited in place. Grounded on
// resourcelib.py: Resource.copyState.
func (r *Resource) CopyState(old *Resource) {
	r.ReservedBy = old.ReservedBy
	r.Suspended = old.Suspended
	r.ChangedTime = old.ChangedTime
	r.ChangedUser = old.ChangedUser
}

// StatusLevel derives FREE/RESERVED/SUSPENDED against the resource's
// own state, independent of connection freshness; the broker combines this
// with ConnectionStatus
func (r *Resource) StatusLevel() StatusLevel {
	switch {
	case r.Suspended:
		return StatusSuspended
	case r.IsReserved():
		return StatusReserved
	default:
		return StatusFree
	}
}

// TaskRunner is a distinguished Resource subtype representing an execution
// agent. The embedded Resource carries id/type/capabilities/locator/etc;
// these are the additional attributes of
type TaskRunner struct {
	Resource

	LastSync     time.Time
	RunningRunID RunID  // empty if idle
	ShadowRunID  RunID  // empty if no extraction shadow run bound
	ExitOnIdle   bool
	Version      string
}

// ConnectionStatus classifies the runner by how long ago it last synced,
// against the two configured thresholds (warn, lost). Grounded on
// resourcelib.py's ConnectionStatus concept, generalized with explicit
// thresholds.
func (t *TaskRunner) ConnectionStatus(now time.Time, warn, lost time.Duration) ConnectionStatus {
	if t.LastSync.IsZero() {
		return ConnectionUnknown
	}
	age := now.Sub(t.LastSync)
	switch {
	case age >= lost:
		return ConnectionLost
	case age >= warn:
		return ConnectionWarning
	default:
		return ConnectionConnected
	}
}

// IsIdle reports whether the runner believes it has no assigned run.
func (t *TaskRunner) IsIdle() bool { return t.RunningRunID == "" }
