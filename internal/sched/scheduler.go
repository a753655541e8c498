// internal/sched/scheduler.go

package sched

import (
	"encoding/csv"
	"log/slog"
	"os"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/google/uuid"

	"jeditask/internal/arena"
)

// Scheduler runs tasks cooperatively on a single thread. All methods must be
// called from the thread that owns the scheduler.
type Scheduler struct {
	id    uuid.UUID
	cfg   Config
	log   *slog.Logger
	clock *TickClock

	// storage, built on the first create or push
	tasks  *arena.Pool[Task, *Task]
	stacks *arena.Blocks
	index  *treemap.Map // TaskID -> *Task
	lastID TaskID
	count  int

	// hierarchy and cursors
	root            Task  // main-chain sentinel, never runs
	iter            *Task // PushTask inserts after this
	cur             *Task
	resume          *Task // frame-break task the next frame starts after
	resumeInclusive bool  // start at resume instead of after it
	lap             *Task // where the running frame started
	dispatchID      int

	// logging-related
	observers []func(StatusEvent)
	csvFile   *os.File
	csvWriter *csv.Writer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithClock sets the logical clock. The default is a fresh clock at tick 0.
func WithClock(c *TickClock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New creates a new Scheduler instance with the given configuration.
func New(cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		id:    uuid.New(),
		cfg:   cfg.clamped(),
		log:   slog.Default(),
		index: treemap.NewWith(byID),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = NewTickClock(0)
	}
	s.log = s.log.With("scheduler", s.id.String())
	s.resetRoot()
	return s
}

// ID returns the scheduler instance id used in logs and event records.
func (s *Scheduler) ID() uuid.UUID { return s.id }

// Clock returns the logical clock.
func (s *Scheduler) Clock() *TickClock { return s.clock }

// Now returns the current logical tick.
func (s *Scheduler) Now() Tick { return s.clock.Count() }

// Current returns the running task, or nil when none is.
func (s *Scheduler) Current() *Task {
	if s.cur == &s.root {
		return nil
	}
	return s.cur
}

// successor returns the task after t in scheduling order: the innermost newest
// descendant of the next sibling, or the parent once a secondary chain is exhausted.
func (s *Scheduler) successor(t *Task) *Task {
	if t.next != nil {
		n := t.next
		for n.child != nil {
			n = n.child
		}
		return n
	}
	return t.parent
}

func (s *Scheduler) ready(t *Task, now Tick) bool {
	return t != &s.root && (t.nextTick <= now || t.frameBreak)
}

// selectNext makes the next due (or frame-break) task after the current one
// current. It walks at most one lap of the hierarchy, and inside a frame it
// stops where the frame started; the current task becomes nil when nothing is found.
func (s *Scheduler) selectNext() {
	start := s.cur
	if start == nil {
		start = &s.root
	}
	now := s.Now()
	t := s.successor(start)
	for n := 0; t != nil && t != start && n <= s.count; n++ {
		if t == s.lap && !t.frameBreak {
			break
		}
		if s.ready(t, now) {
			s.cur = t
			s.dispatchID = 0
			return
		}
		t = s.successor(t)
	}
	s.cur = nil
}

// RunFrame runs tasks until a frame-break task has run or nothing else is due.
// It starts after the frame-break task that ended the previous frame.
func (s *Scheduler) RunFrame() {
	if s.count == 0 {
		s.emit(StatusIdle, nil)
		return
	}

	// Find the next task to run.
	start, inclusive := s.resume, s.resumeInclusive
	if start == nil {
		start, inclusive = s.cur, false
	}
	if start == nil {
		start = &s.root
	}
	t := start
	if !inclusive {
		t = s.successor(t)
	}
	for t == &s.root {
		t = s.successor(t)
	}
	s.lap = start
	s.cur = t
	s.dispatchID = 0
	s.log.Debug("frame start", "tick", s.Now(), "task", t.id)

	ran := 0
	for s.cur != nil {
		t := s.cur
		framebreak := t.frameBreak
		if framebreak {
			s.resume, s.resumeInclusive = t, false
		}

		// Only false for a sleeping frame-break task or one picked at frame start.
		if t.nextTick <= s.Now() {
			ran++
			s.dispatch(t)
		} else if !framebreak {
			s.selectNext()
		}

		if framebreak {
			s.emit(StatusFrameBreak, t)
			break
		}
	}

	// Between frames nothing runs; the host acts from the root.
	s.cur = &s.root
	s.lap = nil
	if ran == 0 {
		s.emit(StatusIdle, nil)
	}
	s.log.Debug("frame end", "tick", s.Now(), "dispatched", ran)
}

// dispatch resumes t one level past the level it last yielded at.
func (s *Scheduler) dispatch(t *Task) {
	level := max(0, t.ctx.level+1)
	if level >= MaxLevels {
		s.fatal(ErrLevelOverflow, t)
	}
	fn := t.ctx.frames[level].fn
	if fn == nil {
		s.fatal(ErrMissingFunc, t)
	}
	s.emit(StatusDispatch, t)
	fn(s, s.dispatchID)
}

// Yield suspends the current level, saving ip as its resumption token. A task
// entered through RunSynchronously hands control straight back to its caller;
// any other task becomes ready again after delay ticks (never, for Sleep) and
// the scheduler moves on.
func (s *Scheduler) Yield(delay Tick, ip int) {
	t := s.cur
	c := s.context()
	s.checkLevel(c.level)
	c.frames[c.level].ip = ip
	c.level--

	if ret := s.returnTarget(t); ret != nil {
		t.returnTo = nil
		s.emit(StatusYield, t)
		s.cur = ret
		s.dispatchID = 0
		return
	}
	t.returnTo = nil

	t.nextTick = readyAt(s.Now(), delay)
	s.emit(StatusYield, t)
	s.selectNext()
}

// readyAt is now+delay, saturated at Sleep.
func readyAt(now, delay Tick) Tick {
	if delay >= Sleep || (now > 0 && delay > Sleep-now) {
		return Sleep
	}
	return now + delay
}

// returnTarget returns the live task t was synchronously run from, if any.
func (s *Scheduler) returnTarget(t *Task) *Task {
	r := t.returnTo
	if r == nil {
		return nil
	}
	if r != &s.root && (!s.tasks.Live(r) || r.id != t.returnID) {
		return nil
	}
	return r
}

// RunResult tells a synchronous caller what the task it ran did.
type RunResult int

const (
	// Suspended means the task yielded back; it is still live.
	Suspended RunResult = iota
	// Completed means the task's root level returned and the task was freed.
	Completed
)

func (r RunResult) String() string {
	if r == Completed {
		return "completed"
	}
	return "suspended"
}

// RunSynchronously runs t in place from its root level with dispatch id id and
// blocks until it yields or completes. Control then comes straight back to the
// caller rather than through the scheduler. t's nesting level is restored
// afterwards, so only single-level suspension inside a synchronous run is supported.
func (s *Scheduler) RunSynchronously(t *Task, id int) RunResult {
	if t == nil || s.tasks == nil || !s.tasks.Live(t) {
		s.fatal(ErrNoContext, t)
	}
	caller := s.cur
	if caller == nil {
		caller = &s.root
	}
	tid := t.id
	t.returnTo, t.returnID = caller, caller.id

	s.cur = t
	s.dispatchID = id
	c := &t.ctx
	prev := c.level

	// Call from the base level, we are starting again.
	c.level = initLevel
	c.frames[0].ip = 0
	fn := c.frames[0].fn
	if fn == nil {
		s.fatal(ErrMissingFunc, t)
	}
	s.emit(StatusDispatch, t)
	fn(s, id)

	s.cur = caller
	s.dispatchID = 0
	if !s.tasks.Live(t) || t.id != tid {
		return Completed
	}
	t.returnTo = nil
	c.level = prev
	return Suspended
}

// RunLocal invokes t's local function, if it has one, without touching its context.
func (s *Scheduler) RunLocal(t *Task, id int) {
	if t.local != nil {
		t.local(s, id)
	}
}

// byID orders the task index.
func byID(a, b any) int {
	ka, kb := a.(TaskID), b.(TaskID)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}
