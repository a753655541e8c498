package sched

import (
	"unsafe"

	"jeditask/internal/arena"
)

// MaxLevels bounds the virtual call stack of a task.
const MaxLevels = 16

const initLevel = -1

// frame is one level of a task's virtual call stack.
type frame struct {
	fn       TaskFunc
	ip       int
	scratch  []byte
	local    any
	size     int  // bytes reserved in the stack block for this level
	reserved bool // scratch or local allocated for the current activation
	delayed  bool // the call made from this level suspended before returning
}

// Context is the execution context of a task: a bounded virtual call stack with a
// private stack block for per-level scratch memory.
type Context struct {
	level     int
	callLevel int
	frames    [MaxLevels]frame

	stack  arena.Block // claimed on the first allocation
	offset int
}

func (c *Context) reset(fn TaskFunc) {
	*c = Context{level: initLevel}
	c.frames[0].fn = fn
}

// release drops the scratch reservation of a level that has been unwound.
func (c *Context) release(level int) {
	f := &c.frames[level]
	if !f.reserved {
		return
	}
	c.offset -= f.size
	f.scratch = nil
	f.local = nil
	f.size = 0
	f.reserved = false
}

// context returns the current task's context or aborts.
func (s *Scheduler) context() *Context {
	if s.cur == nil || s.cur == &s.root {
		s.fatal(ErrNoContext, s.cur)
	}
	return &s.cur.ctx
}

func (s *Scheduler) checkLevel(level int) {
	if level < 0 || level >= MaxLevels {
		s.fatal(ErrLevelOverflow, s.cur)
	}
}

// Begin enters the next level of the current context. Every task level function
// starts with it, before dispatching on IP.
func (s *Scheduler) Begin() {
	c := s.context()
	c.level++
	s.checkLevel(c.level)
}

// IP returns the resumption token saved for the current level.
func (s *Scheduler) IP() int {
	c := s.context()
	s.checkLevel(c.level)
	return c.frames[c.level].ip
}

// reserve claims size bytes of the task's stack block for the current level,
// once per activation. It reports whether this call made the reservation.
func (s *Scheduler) reserve(c *Context, size int) (*frame, bool) {
	s.checkLevel(c.level)
	f := &c.frames[c.level]
	if f.reserved {
		return f, false
	}
	if c.stack.Data == nil {
		blk, err := s.stacks.Alloc()
		if err != nil {
			s.fatal(ErrArenaExhausted, s.cur)
		}
		c.stack = blk
		c.offset = 0
		for i := range c.frames {
			c.frames[i].size = 0
		}
	}
	if c.offset+size > len(c.stack.Data) {
		s.fatal(ErrStackOverflow, s.cur)
	}
	f.scratch = c.stack.Data[c.offset : c.offset+size : c.offset+size]
	clear(f.scratch)
	f.size = size
	f.reserved = true
	c.offset += size
	return f, true
}

// Allocate reserves size zeroed bytes of scratch memory for the current level and
// returns them. Later calls during the same activation return the first
// reservation whatever size they ask for.
func (s *Scheduler) Allocate(size int) []byte {
	c := s.context()
	if size <= 0 {
		s.checkLevel(c.level)
		return c.frames[c.level].scratch
	}
	f, _ := s.reserve(c, size)
	return f.scratch
}

// Scratch returns the current level's scratch memory, or nil if none was allocated.
func (s *Scheduler) Scratch() []byte {
	c := s.context()
	s.checkLevel(c.level)
	return c.frames[c.level].scratch
}

// Local returns the typed local state of the current level, allocating a zero T on
// the first call of the activation. The value is charged against the task's stack
// block like Allocate, but lives on the Go heap since T may hold pointers.
func Local[T any](s *Scheduler) *T {
	c := s.context()
	var zero T
	f, fresh := s.reserve(c, int(unsafe.Sizeof(zero)))
	if fresh {
		f.local = new(T)
	}
	v, ok := f.local.(*T)
	if !ok {
		s.fatal(ErrLocalType, s.cur)
	}
	return v
}

// Call runs fn as the next level of the current task, in place. ip is saved as the
// current level's resumption token. Call reports whether fn suspended instead of
// returning; the caller must then return as well and will be resumed at ip once fn
// completes.
func (s *Scheduler) Call(fn TaskFunc, id int, ip int) bool {
	if fn == nil {
		s.fatal(ErrMissingFunc, s.cur)
	}
	c := s.context()
	if c.level < 0 || c.level+1 >= MaxLevels {
		s.fatal(ErrLevelOverflow, s.cur)
	}
	if c.level == 0 {
		c.callLevel = 0
	}
	start := c.level
	startCall := c.callLevel
	c.frames[start].delayed = false
	c.callLevel++

	c.frames[start].ip = ip
	c.frames[start+1].fn = fn
	c.frames[start+1].ip = 0
	s.emit(StatusCall, s.cur)
	fn(s, id)

	delayed := startCall != c.callLevel
	if delayed {
		c.frames[start].delayed = true
	}
	return delayed
}

// Return unwinds the current level. Returning from a call that suspended unwinds
// two levels, since the suspension already returned through the caller once.
// Returning from level 0 ends the task.
func (s *Scheduler) Return() {
	t := s.cur
	c := s.context()
	level := c.level
	s.checkLevel(level)

	if level <= 0 || !c.frames[level-1].delayed {
		c.level--
	} else {
		c.level -= 2
	}
	if c.callLevel > 0 {
		c.callLevel--
	}

	if level == 0 {
		s.emit(StatusFinish, t)
		s.FreeTask(t)
		return
	}
	c.release(level)
}
