package sched

import (
	"math"

	"jeditask/internal/arena"
)

// TaskID is a debugging handle layered over a task's address. IDs are never reused.
type TaskID uint64

// Tick is the logical clock unit. Delays and ready times are expressed in ticks.
type Tick int64

// Sleep is the ready tick of a task that waits until something makes it active again.
// Passed as a yield delay it suspends the task indefinitely.
const Sleep Tick = math.MaxInt64

// TaskFunc is the entry (and resume) function of a task level. id is the dispatch
// id: 0 when the scheduler resumes the task, the caller's value for direct runs.
// The function dispatches on s.IP() to continue where it left off.
type TaskFunc func(s *Scheduler, id int)

// Task represents one schedulable unit of game logic.
//
// Top-level tasks sit on the main chain, a ring closed by the scheduler's root
// sentinel. Every task may own a secondary chain of children (newest first) that
// is drained before the scheduler moves past the task.
type Task struct {
	arena.Slot

	id   TaskID
	name string

	prev, next *Task // main-chain ring when parent is nil, sibling list otherwise
	parent     *Task // owner of the secondary chain this task is on
	child      *Task // newest child

	returnTo   *Task
	returnID   TaskID
	userData   any
	frameBreak bool
	nextTick   Tick

	ctx   Context
	local TaskFunc
}

// ID returns the task's debug id.
func (t *Task) ID() TaskID { return t.id }

// Name returns the name given at creation.
func (t *Task) Name() string { return t.name }

// FrameBreak reports whether the frame loop stops after running this task.
func (t *Task) FrameBreak() bool { return t.frameBreak }

// NextTick returns the tick at which the task becomes ready.
func (t *Task) NextTick() Tick { return t.nextTick }

// SetNextTick sets the tick at which the task becomes ready.
func (t *Task) SetNextTick(tick Tick) { t.nextTick = tick }

// MakeActive makes a task ready on the next due check, including one that yielded with Sleep.
func (t *Task) MakeActive() { t.nextTick = 0 }

// Sleeping reports whether the task waits for MakeActive or SetNextTick.
func (t *Task) Sleeping() bool { return t.nextTick == Sleep }

// SetUserData attaches an opaque value to the task. The scheduler never reads it.
func (t *Task) SetUserData(data any) { t.userData = data }

// UserData returns the value attached with SetUserData.
func (t *Task) UserData() any { return t.userData }

// SetLocalFunc sets the function RunLocal invokes.
func (t *Task) SetLocalFunc(fn TaskFunc) { t.local = fn }

// Level returns the current nesting level of the task's context (-1 when unstarted).
func (t *Task) Level() int { return t.ctx.level }

// Parent returns the task owning the secondary chain t is on, or nil for main-chain tasks.
func (t *Task) Parent() *Task { return t.parent }

// Children returns the task's secondary chain in scheduling order (newest first).
func (t *Task) Children() []*Task {
	var out []*Task
	for c := t.child; c != nil; c = c.next {
		out = append(out, c)
	}
	return out
}
