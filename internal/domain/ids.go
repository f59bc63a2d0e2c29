// Package domain holds the record types: product and framework
// definitions, task definitions, resource types and resources, jobs and
// their tasks/runs, schedules and tokens. Types here never embed pointers
// to other records — only ids — so stores can be reloaded independently and
// observers never have to chase a live object graph across store
// boundaries (see internal/store).
package domain

import (
	"fmt"
	"sync/atomic"
	"time"
)

// JobID is a sortable, timestamp-derived identifier. Two jobs created in
// the same process within the same second get distinct ids because of the
// process-wide sequence counter; ids sort lexically in creation order.
type JobID string

var jobSeqCounter uint32

// NewJobID derives a fresh sortable id from the given instant. The sequence
// counter is incremented atomically, so concurrent callers get distinct
// values; it is never reset and only its last four digits are used.
func NewJobID(now time.Time) JobID {
	sec := now.Unix()
	n := atomic.AddUint32(&jobSeqCounter, 1)
	return JobID(fmt.Sprintf("%d-%04d", sec, n%10000))
}

// RunID identifies a single TaskRun attempt, unique within its Task.
type RunID string

// NewRunID derives a run id from a job id, task name and attempt number so
// that retries produce distinct, sortable ids without a global counter.
func NewRunID(job JobID, task string, attempt int) RunID {
	return RunID(fmt.Sprintf("%s/%s/%d", job, task, attempt))
}
