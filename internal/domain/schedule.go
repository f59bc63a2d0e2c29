package domain

import "time"

// RepeatKind is how a Schedule recurs.
type RepeatKind string

const (
	RepeatOnce         RepeatKind = "ONCE"
	RepeatDaily        RepeatKind = "DAILY"
	RepeatWeekly       RepeatKind = "WEEKLY"
	RepeatContinuously RepeatKind = "CONTINUOUSLY"
	RepeatTriggered    RepeatKind = "TRIGGERED"
)

// Weekday bitmap flags, combined to form Schedule.DaysOfWeek: WEEKLY
// schedules fire on a selectable subset of weekdays.
const (
	Sunday Weekday = 1 << iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Weekday is a bitmap of time.Weekday values ORed together.
type Weekday int

// Has reports whether d is included in the bitmap.
func (w Weekday) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// FullWeek is every day set.
const FullWeek = Sunday | Monday | Tuesday | Wednesday | Thursday | Friday | Saturday

// Schedule periodically or continuously instantiates a Configuration into
// new Jobs.
type Schedule struct {
	ID         string
	Owner      string
	Suspended  bool
	ConfigID   string
	TagFilter  string // matches a Configuration tag set instead of a fixed ConfigID when non-empty
	Comment    string

	// Tags holds the schedule's own tag values, keyed by tag name. A
	// TRIGGERED schedule is fired by internal/webhook when one of its
	// "sf.trigger" values equals "<repositoryId>/<branch>" for the
	// repository the inbound webhook call matched.
	Tags map[string][]string

	Repeat     RepeatKind
	StartTime  time.Time // first fire time (ONCE/DAILY/WEEKLY); time-of-day component used for DAILY/WEEKLY
	DaysOfWeek Weekday   // meaningful only for WEEKLY
	MinDelay   time.Duration // minimum spacing between fires, for CONTINUOUSLY

	// TriggerFired latches true once a TRIGGERED schedule has been fired by
	// its webhook and cleared back to false after the resulting job starts,
	// so a second trigger received before the job starts does not queue a
	// second job ("TRIGGERED schedules coalesce bursts").
	TriggerFired bool

	LastStartTime time.Time
	LastJobIDs    []JobID
	Done          bool // ONCE schedules set this after firing and never fire again
}

// DueAt reports whether the schedule should fire at "now", given the last
// time it actually started a job. It does not mutate the schedule; callers
// apply the resulting state transition themselves after a successful fire.
func (s *Schedule) DueAt(now time.Time) bool {
	if s.Suspended || s.Done {
		return false
	}
	switch s.Repeat {
	case RepeatOnce:
		return !now.Before(s.StartTime)
	case RepeatDaily:
		return dueDailyLike(s.LastStartTime, s.StartTime, now, 24*time.Hour)
	case RepeatWeekly:
		if !s.DaysOfWeek.Has(now.Weekday()) {
			return false
		}
		return dueDailyLike(s.LastStartTime, s.StartTime, now, 24*time.Hour)
	case RepeatContinuously:
		if s.LastStartTime.IsZero() {
			return true
		}
		return now.Sub(s.LastStartTime) >= s.MinDelay
	case RepeatTriggered:
		return s.TriggerFired
	default:
		return false
	}
}

// dueDailyLike reports whether a daily-cadence schedule with the given
// time-of-day (from startTime) is due, having last fired at lastStart.
func dueDailyLike(lastStart, startTime, now time.Time, period time.Duration) bool {
	todayFireTime := time.Date(now.Year(), now.Month(), now.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, now.Location())
	if now.Before(todayFireTime) {
		return false
	}
	return lastStart.Before(todayFireTime)
}

// RecordFire updates bookkeeping after the schedule has successfully
// started a job.
func (s *Schedule) RecordFire(now time.Time, job JobID) {
	s.LastStartTime = now
	s.LastJobIDs = append(s.LastJobIDs, job)
	s.TriggerFired = false
	if s.Repeat == RepeatOnce {
		s.Done = true
	}
}

// TagValues returns the schedule's values for a tag name, grounded on
// schedulelib.py's Schedule.getTagValues.
func (s *Schedule) TagValues(name string) []string {
	return s.Tags[name]
}

// Trigger marks a TRIGGERED schedule as fired by an external webhook call
// (/ ). No-op for any other repeat kind.
func (s *Schedule) Trigger() {
	if s.Repeat == RepeatTriggered {
		s.TriggerFired = true
	}
}
