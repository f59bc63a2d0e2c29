// Package retention periodically purges finished jobs whose reports have
// aged past the configured retention window, deleting their stored report
// artifacts before removing the job record itself.
package retention

import (
	"context"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/cloud-scan/controlcenter/internal/reportstore"
	log "github.com/sirupsen/logrus"
)

// JobStore is the subset of store.Store[*domain.Job] the sweeper needs.
type JobStore interface {
	All() []*domain.Job
	Remove(id string) error
}

// Sweeper deletes report artifacts and job records for jobs that finished
// more than RetentionDays ago. A zero RetentionDays disables the sweep.
type Sweeper struct {
	jobs          JobStore
	reports       reportstore.ReportStorage
	retentionDays int
	interval      time.Duration
	logger        *log.Entry
}

func New(jobs JobStore, reports reportstore.ReportStorage, retentionDays int, interval time.Duration) *Sweeper {
	return &Sweeper{
		jobs: jobs, reports: reports, retentionDays: retentionDays, interval: interval,
		logger: log.WithField("component", "retention"),
	}
}

// Run ticks every interval until ctx is cancelled, sweeping eligible jobs
// on each tick. Disabled entirely when retentionDays is zero.
func (s *Sweeper) Run(ctx context.Context) {
	if s.retentionDays <= 0 {
		s.logger.Info("report retention disabled")
		return
	}
	s.logger.WithField("retentionDays", s.retentionDays).Info("starting retention sweep")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.sweep(ctx, time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) {
	cutoff := now.AddDate(0, 0, -s.retentionDays)
	for _, j := range s.jobs.All() {
		if j.FinishedTime.IsZero() || j.FinishedTime.After(cutoff) {
			continue
		}
		locators := reportLocators(j)
		if len(locators) > 0 {
			if err := s.reports.Delete(ctx, locators); err != nil {
				s.logger.WithError(err).WithField("job", j.ID).Warn("deleting job reports, job kept for retry")
				continue
			}
		}
		if err := s.jobs.Remove(string(j.ID)); err != nil {
			s.logger.WithError(err).WithField("job", j.ID).Warn("removing expired job record")
		}
	}
}

func reportLocators(j *domain.Job) []string {
	var locators []string
	for _, p := range j.Products {
		for _, loc := range p.Locators {
			if loc != "" && loc != domain.TokenLocator {
				locators = append(locators, loc)
			}
		}
	}
	return locators
}
