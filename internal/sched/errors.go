package sched

import (
	"errors"
	"fmt"
)

// Fatal conditions. The scheduler never returns these; it panics with a *FatalError
// wrapping one of them, since each means a content budget or the task hierarchy is broken.
var (
	ErrArenaExhausted = errors.New("task arena exhausted")
	ErrLevelOverflow  = errors.New("task nesting level out of range")
	ErrStackOverflow  = errors.New("task stack memory overflow")
	ErrMissingFunc    = errors.New("no task function at level")
	ErrNoContext      = errors.New("no current task context")
	ErrLocalType      = errors.New("task local state has a different type at this level")
)

// FatalError is the panic value for unrecoverable scheduler faults.
type FatalError struct {
	Err   error
	Task  TaskID
	Name  string
	Level int
}

func (e *FatalError) Error() string {
	if e.Task == 0 {
		return fmt.Sprintf("sched: %v", e.Err)
	}
	return fmt.Sprintf("sched: %v (task %d %q, level %d)", e.Err, e.Task, e.Name, e.Level)
}

func (e *FatalError) Unwrap() error { return e.Err }

func (s *Scheduler) fatal(err error, t *Task) {
	fe := &FatalError{Err: err, Level: initLevel}
	if t != nil && t != &s.root {
		fe.Task = t.id
		fe.Name = t.name
		fe.Level = t.ctx.level
	}
	s.log.Error("fatal scheduler fault", "err", err, "task", fe.Task, "name", fe.Name, "level", fe.Level)
	panic(fe)
}
