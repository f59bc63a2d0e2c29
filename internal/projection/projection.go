package projection

import (
	"context"

	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/cloud-scan/controlcenter/internal/store"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// Projection mirrors store.Observer notifications for jobs and schedules
// into the Postgres schema. One instance is registered against the job
// and schedule stores; it never feeds back into them.
type Projection struct {
	db *DB
}

func New(db *DB) *Projection {
	return &Projection{db: db}
}

// RecordChanged implements store.Observer. rec's concrete type selects the
// upsert path; unrecognized types are ignored (future record kinds simply
// aren't projected until this switch grows a case).
func (p *Projection) RecordChanged(id string, rec store.Record, removed bool) {
	ctx := context.Background()
	switch v := rec.(type) {
	case *domain.Job:
		if removed {
			p.deleteJob(ctx, id)
		} else {
			p.upsertJob(ctx, v)
		}
	case *domain.Schedule:
		if removed {
			p.deleteSchedule(ctx, id)
		} else {
			p.upsertSchedule(ctx, v)
		}
	}
}

func (p *Projection) upsertJob(ctx context.Context, j *domain.Job) {
	result, final := j.Result()
	var finalizedAt interface{}
	if final && !j.FinishedTime.IsZero() {
		finalizedAt = j.FinishedTime
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO jobs (id, owner, config_id, result, final, created_at, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			result = EXCLUDED.result, final = EXCLUDED.final, finalized_at = EXCLUDED.finalized_at
	`, string(j.ID), j.Owner, j.ConfigID, string(result), final, j.CreateTime, finalizedAt)
	if err != nil {
		log.WithError(err).WithField("job", j.ID).Error("projection: upserting job")
		return
	}

	for _, t := range j.OrderedTasks() {
		p.upsertTask(ctx, j, t)
		for _, run := range t.Runs {
			p.upsertRun(ctx, j, t, run)
		}
	}
	for _, prod := range j.Products {
		p.upsertProduct(ctx, j, prod)
	}
}

func (p *Projection) upsertTask(ctx context.Context, j *domain.Job, t *domain.Task) {
	state := taskState(t)
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tasks (job_id, name, taskdef_id, state, priority)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id, name) DO UPDATE SET state = EXCLUDED.state
	`, string(j.ID), t.Name, t.TaskDefID, state, t.Priority)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"job": j.ID, "task": t.Name}).Error("projection: upserting task")
	}
}

func taskState(t *domain.Task) string {
	run := t.LastRun()
	if run == nil {
		return "PENDING"
	}
	if !run.IsTerminal() {
		return string(run.State)
	}
	return string(run.Result)
}

func (p *Projection) upsertRun(ctx context.Context, j *domain.Job, t *domain.Task, run *domain.TaskRun) {
	var start, end interface{}
	if !run.StartTime.IsZero() {
		start = run.StartTime
	}
	if !run.StopTime.IsZero() {
		end = run.StopTime
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO task_runs (job_id, task_name, run_id, runner_id, result, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			runner_id = EXCLUDED.runner_id, result = EXCLUDED.result,
			start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time
	`, string(j.ID), t.Name, string(run.ID), run.RunnerID, string(run.Result), start, end)
	if err != nil {
		log.WithError(err).WithField("run", run.ID).Error("projection: upserting run")
	}
}

func (p *Projection) upsertProduct(ctx context.Context, j *domain.Job, prod *domain.Product) {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO products (job_id, name, state, locator)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id, name) DO UPDATE SET state = EXCLUDED.state, locator = EXCLUDED.locator
	`, string(j.ID), prod.Name, string(prod.State), prod.DefaultLocator)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"job": j.ID, "product": prod.Name}).Error("projection: upserting product")
	}
}

func (p *Projection) deleteJob(ctx context.Context, id string) {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		log.WithError(err).WithField("job", id).Error("projection: deleting job")
	}
}

func (p *Projection) upsertSchedule(ctx context.Context, s *domain.Schedule) {
	var lastStart interface{}
	if !s.LastStartTime.IsZero() {
		lastStart = s.LastStartTime
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO schedules (id, owner, repeat, suspended, last_start_time, tag_values)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			suspended = EXCLUDED.suspended, last_start_time = EXCLUDED.last_start_time,
			tag_values = EXCLUDED.tag_values
	`, s.ID, s.Owner, string(s.Repeat), s.Suspended, lastStart, pq.Array(s.TagValues("sf.trigger")))
	if err != nil {
		log.WithError(err).WithField("schedule", s.ID).Error("projection: upserting schedule")
	}
}

func (p *Projection) deleteSchedule(ctx context.Context, id string) {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		log.WithError(err).WithField("schedule", id).Error("projection: deleting schedule")
	}
}

// JobStore and ScheduleStore are the subset of store.Store[T] Rebuild reads
// from, kept narrow so tests can fake them without a real store.
type JobStore interface{ All() []*domain.Job }
type ScheduleStore interface{ All() []*domain.Schedule }

// Rebuild truncates the projection and repopulates it from the
// authoritative stores, backing the "projection rebuild" CLI verb. The
// projection must be reconstructable from the stores at any time.
func (p *Projection) Rebuild(ctx context.Context, jobs JobStore, schedules ScheduleStore) error {
	for _, stmt := range []string{
		`TRUNCATE task_runs, tasks, products, jobs, schedules CASCADE`,
	} {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, j := range jobs.All() {
		p.upsertJob(ctx, j)
	}
	for _, s := range schedules.All() {
		p.upsertSchedule(ctx, s)
	}
	return nil
}
