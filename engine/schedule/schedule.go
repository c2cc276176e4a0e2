// Package schedule holds the session's delayed tasks: ambush timers and
// delayed restarts. Tasks never run on their own goroutine; the owner calls
// RunDue from its loop, so a task always runs on the engine goroutine.
package schedule

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is a pending delayed action.
type Task struct {
	id        uint64
	name      string
	due       time.Time
	epoch     uint64
	fn        func()
	cancelled bool
	done      bool
}

// Name returns the label the task was scheduled with.
func (t *Task) Name() string { return t.name }

// Due returns when the task becomes runnable.
func (t *Task) Due() time.Time { return t.due }

// Cancel prevents the task from running. Cancelling a task that already ran
// is a no-op.
func (t *Task) Cancel() { t.cancelled = true }

// Cancelled reports whether Cancel was called.
func (t *Task) Cancelled() bool { return t.cancelled }

// Done reports whether the task has run.
func (t *Task) Done() bool { return t.done }

// Scheduler owns a session's pending tasks.
type Scheduler struct {
	clock  Clock
	log    logrus.FieldLogger
	tasks  []*Task
	nextID uint64
	epoch  uint64
}

// New creates a scheduler reading time from clock. A nil clock means the
// system clock.
func New(clock Clock, log logrus.FieldLogger) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Scheduler{clock: clock, log: log.WithField("component", "scheduler")}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// After schedules fn to run once d has elapsed.
func (s *Scheduler) After(d time.Duration, name string, fn func()) *Task {
	s.nextID++
	t := &Task{
		id:    s.nextID,
		name:  name,
		due:   s.clock.Now().Add(d),
		epoch: s.epoch,
		fn:    fn,
	}
	s.tasks = append(s.tasks, t)
	s.log.WithFields(logrus.Fields{"task": name, "delay": d}).Debug("task scheduled")
	return t
}

// CancelAll cancels every pending task and starts a new epoch. Tasks from
// an earlier epoch never run, even if a reference to them survives.
func (s *Scheduler) CancelAll() {
	for _, t := range s.tasks {
		t.cancelled = true
	}
	s.tasks = nil
	s.epoch++
}

// CancelNamed cancels every pending task with the given name.
func (s *Scheduler) CancelNamed(name string) int {
	n := 0
	for _, t := range s.tasks {
		if t.name == name && !t.cancelled {
			t.cancelled = true
			n++
		}
	}
	return n
}

// Pending returns the number of tasks that will still run.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled && t.epoch == s.epoch {
			n++
		}
	}
	return n
}

// NextDue returns the due time of the earliest live task.
func (s *Scheduler) NextDue() (time.Time, bool) {
	var next time.Time
	found := false
	for _, t := range s.tasks {
		if t.cancelled || t.epoch != s.epoch {
			continue
		}
		if !found || t.due.Before(next) {
			next = t.due
			found = true
		}
	}
	return next, found
}

// RunDue runs every live task whose due time has passed, earliest first,
// and returns how many ran. Tasks scheduled while running wait for the next
// call. A task that cancels the rest (for example a restart) stops the
// batch.
func (s *Scheduler) RunDue() int {
	now := s.clock.Now()
	epoch := s.epoch

	var due, keep []*Task
	for _, t := range s.tasks {
		switch {
		case t.cancelled || t.epoch != epoch:
		case !t.due.After(now):
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	s.tasks = keep

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})

	ran := 0
	for _, t := range due {
		if t.cancelled || s.epoch != epoch {
			continue
		}
		t.done = true
		s.log.WithField("task", t.name).Debug("task running")
		t.fn()
		ran++
	}
	return ran
}
