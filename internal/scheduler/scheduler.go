// Package scheduler implements the driver loop: periodically
// or continuously instantiating Configurations into Jobs. WEEKLY advancement
// reuses robfig/cron/v3's standard parser against a derived cron field
// string built from the schedule's day-of-week bitmap, so DST/month/year
// rollover is handled by a real, tested date library.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloud-scan/controlcenter/internal/ctlerr"
	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ScheduleStore is the subset of store.Store[*domain.Schedule] needed here.
type ScheduleStore interface {
	All() []*domain.Schedule
	Put(*domain.Schedule) error
}

// ConfigurationStore is the subset of store.Store[*domain.Configuration]
// needed to resolve a schedule's target(s).
type ConfigurationStore interface {
	Get(id string) (*domain.Configuration, bool)
	All() []*domain.Configuration
}

// InputValidator answers whether a configuration currently has valid
// inputs, against the live product-definition set.
type InputValidator func(c *domain.Configuration) bool

// JobCreator is implemented by internal/engine.Engine.
type JobCreator interface {
	CreateJob(id domain.JobID, config *domain.Configuration, owner string, now time.Time) (*domain.Job, error)
}

// JobFinder reports whether a job has reached a terminal state, used for
// CONTINUOUSLY's backpressure check against lastJobs.
type JobFinder interface {
	IsJobFinal(id domain.JobID) (final bool, found bool)
}

// Driver runs the scheduling loop. One instance per controller.
type Driver struct {
	schedules ScheduleStore
	configs   ConfigurationStore
	jobs      JobCreator
	finder    JobFinder
	validInputs InputValidator

	wake   chan struct{}
	logger *log.Entry
}

func New(schedules ScheduleStore, configs ConfigurationStore, jobs JobCreator, finder JobFinder, validInputs InputValidator) *Driver {
	return &Driver{
		schedules: schedules, configs: configs, jobs: jobs, finder: finder, validInputs: validInputs,
		wake: make(chan struct{}, 1), logger: log.WithField("component", "scheduler"),
	}
}

// Wake notifies the driver that an external trigger (webhook) fired a
// TRIGGERED schedule and it should re-evaluate immediately.
func (d *Driver) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run drives the scheduling loop until ctx is cancelled, waking on the
// earlier of the next schedule's startTime or an external trigger
// ("a single driver loop wakes on the earlier of...").
func (d *Driver) Run(ctx context.Context) {
	d.logger.Info("starting scheduler driver")
	for {
		d.tick(time.Now())

		wait := d.nextWakeDelay(time.Now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info("scheduler driver stopped")
			return
		case <-timer.C:
		case <-d.wake:
			timer.Stop()
		}
	}
}

func (d *Driver) nextWakeDelay(now time.Time) time.Duration {
	const maxIdle = time.Minute
	soonest := maxIdle
	for _, s := range d.schedules.All() {
		if s.Suspended || s.Done || s.StartTime.IsZero() {
			continue
		}
		if d := s.StartTime.Sub(now); d > 0 && d < soonest {
			soonest = d
		}
	}
	return soonest
}

// tick implements per-tick evaluation over every schedule.
func (d *Driver) tick(now time.Time) {
	for _, s := range d.schedules.All() {
		if !s.DueAt(now) {
			continue
		}
		if s.Repeat == domain.RepeatContinuously && !d.batchTerminated(s) {
			continue // backpressure: previous batch still running
		}

		configs, err := d.resolveTargets(s)
		if err != nil {
			d.logger.WithError(err).WithField("schedule", s.ID).Warn("resolving schedule target")
			continue
		}

		var created []domain.JobID
		for _, c := range configs {
			if !d.validInputs(c) {
				d.logger.WithField("schedule", s.ID).WithField("config", c.ID).Warn("configuration has invalid inputs, skipping this tick")
				continue
			}
			id := domain.NewJobID(now)
			job, err := d.jobs.CreateJob(id, c, s.Owner, now)
			if err != nil {
				d.logger.WithError(err).WithField("schedule", s.ID).WithField("config", c.ID).Error("creating scheduled job")
				continue
			}
			created = append(created, job.ID)
		}
		if len(created) == 0 {
			// nothing valid to instantiate this tick; leave the schedule due
			// so it's retried next tick rather than silently skipped forever.
			continue
		}

		s.LastJobIDs = nil
		for _, id := range created {
			s.RecordFire(now, id)
		}
		d.advance(s, now)
		if err := d.schedules.Put(s); err != nil {
			d.logger.WithError(err).WithField("schedule", s.ID).Error("persisting schedule")
		}
	}
}

func (d *Driver) batchTerminated(s *domain.Schedule) bool {
	if len(s.LastJobIDs) == 0 {
		return true
	}
	for _, id := range s.LastJobIDs {
		final, found := d.finder.IsJobFinal(id)
		if !found || !final {
			return false
		}
	}
	return true
}

func (d *Driver) resolveTargets(s *domain.Schedule) ([]*domain.Configuration, error) {
	if s.TagFilter == "" {
		c, ok := d.configs.Get(s.ConfigID)
		if !ok {
			return nil, ctlerr.InvalidRequestf("scheduler: configuration %s not found", s.ConfigID)
		}
		return []*domain.Configuration{c}, nil
	}
	key, value, ok := strings.Cut(s.TagFilter, "=")
	if !ok {
		return nil, ctlerr.InvalidRequestf("scheduler: malformed tag filter %q", s.TagFilter)
	}
	var matches []*domain.Configuration
	for _, c := range d.configs.All() {
		for _, v := range c.Tags[key] {
			if v == value {
				matches = append(matches, c)
				break
			}
		}
	}
	return matches, nil
}

// advance moves s's StartTime past the fire it just processed; Done and
// TriggerFired are already handled by Schedule.RecordFire.
func (d *Driver) advance(s *domain.Schedule, now time.Time) {
	switch s.Repeat {
	case domain.RepeatDaily:
		s.StartTime = s.StartTime.Add(24 * time.Hour)
	case domain.RepeatWeekly:
		next, err := nextWeeklyFire(s.StartTime, s.DaysOfWeek, now)
		if err != nil {
			d.logger.WithError(err).WithField("schedule", s.ID).Error("advancing weekly schedule")
			return
		}
		s.StartTime = next
	case domain.RepeatContinuously:
		s.StartTime = now.Add(s.MinDelay)
	}
}

// nextWeeklyFire computes the next enabled weekday at startTime's
// time-of-day, strictly after now, by building a standard 5-field cron
// expression from the day-of-week bitmap and asking robfig/cron for its
// next occurrence — reusing tested calendar arithmetic instead of
// hand-rolling weekday/month rollover.
func nextWeeklyFire(startTime time.Time, days domain.Weekday, now time.Time) (time.Time, error) {
	var dows []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if days.Has(d) {
			dows = append(dows, fmt.Sprint(int(d)))
		}
	}
	if len(dows) == 0 {
		return time.Time{}, fmt.Errorf("scheduler: weekly schedule has no enabled weekdays")
	}
	expr := fmt.Sprintf("%d %d * * %s", startTime.Minute(), startTime.Hour(), strings.Join(dows, ","))
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: parsing derived cron expression %q: %w", expr, err)
	}
	return schedule.Next(now), nil
}
