package sched

import (
	"jeditask/internal/arena"
)

func (s *Scheduler) resetRoot() {
	s.root = Task{name: "root", nextTick: Sleep}
	s.root.prev = &s.root
	s.root.next = &s.root
	s.root.ctx.level = initLevel
	s.cur = &s.root
	s.iter = &s.root
	s.resume = nil
	s.resumeInclusive = false
	s.lap = nil
	s.dispatchID = 0
}

// ensureInit builds the arenas on first use, and again after Shutdown.
func (s *Scheduler) ensureInit() {
	if s.tasks != nil {
		return
	}
	s.tasks = arena.NewPool[Task](arena.Config{
		ChunkSize:      s.cfg.TaskChunkSize,
		PreallocChunks: s.cfg.TaskPreallocChunks,
		MaxChunks:      s.cfg.TaskMaxChunks,
	})
	s.stacks = arena.NewBlocks(s.cfg.StackSize, arena.Config{
		ChunkSize:      s.cfg.StackChunkSize,
		PreallocChunks: s.cfg.StackPreallocChunks,
		MaxChunks:      s.cfg.StackMaxChunks,
	})
	s.log.Debug("task arenas ready",
		"task_chunk", s.cfg.TaskChunkSize,
		"stack_size", s.cfg.StackSize,
		"stack_chunk", s.cfg.StackChunkSize)
}

func (s *Scheduler) newTask(name string, fn TaskFunc) *Task {
	if fn == nil {
		s.fatal(ErrMissingFunc, s.cur)
	}
	s.ensureInit()
	t, err := s.tasks.Alloc()
	if err != nil {
		s.fatal(ErrArenaExhausted, s.cur)
	}
	s.lastID++
	t.id = s.lastID
	t.name = name
	t.ctx.reset(fn)
	s.index.Put(t.id, t)
	s.count++
	return t
}

// CreateTask creates a task on the secondary chain of the running task (of the
// root when none runs), ahead of its existing children. It is ready at once and
// runs before the scheduler comes back to its parent.
func (s *Scheduler) CreateTask(name string, fn TaskFunc) *Task {
	parent := s.cur
	if parent == nil {
		parent = &s.root
	}
	t := s.newTask(name, fn)
	t.parent = parent
	t.next = parent.child
	if parent.child != nil {
		parent.child.prev = t
	}
	parent.child = t
	t.nextTick = 0

	s.log.Debug("task created", "task", t.id, "name", name, "parent", parent.id)
	s.emit(StatusCreate, t)
	return t
}

// PushTask inserts a task on the main chain after the push cursor and moves the
// cursor to it, so successive pushes keep their order. The task is ready at the
// current tick. A frame-break task ends the frame loop once it has run.
func (s *Scheduler) PushTask(name string, fn TaskFunc, frameBreak bool) *Task {
	at := s.iter
	t := s.newTask(name, fn)
	t.prev = at
	t.next = at.next
	at.next.prev = t
	at.next = t
	t.frameBreak = frameBreak
	t.nextTick = s.Now()
	s.iter = t

	s.log.Debug("task pushed", "task", t.id, "name", name, "frame_break", frameBreak)
	s.emit(StatusPush, t)
	return t
}

// SetDefaults makes the root current and rewinds the push cursor to it.
func (s *Scheduler) SetDefaults() {
	s.cur = &s.root
	s.iter = &s.root
}

// FreeTask removes t from the hierarchy and returns its memory. Children of t take
// its place, in order. Freeing the running task selects the next one, or gives
// control back to the task that ran it synchronously.
func (s *Scheduler) FreeTask(t *Task) {
	if t == nil || t == &s.root || s.tasks == nil || !s.tasks.Live(t) {
		return
	}

	if t == s.cur {
		if ret := s.returnTarget(t); ret != nil {
			s.cur = ret
			s.dispatchID = 0
		} else {
			s.selectNext()
		}
	}
	if s.resume == t {
		s.resume, s.resumeInclusive = s.successor(t), true
	}
	if s.lap == t {
		s.lap = &s.root
	}
	if s.iter == t {
		if t.parent == nil {
			s.iter = t.prev
		} else {
			s.iter = &s.root
		}
	}
	s.emit(StatusFree, t)
	s.unlink(t)

	// Free any memory allocated for the local context.
	if err := s.stacks.Free(t.ctx.stack); err != nil {
		s.log.Warn("stack block release failed", "task", t.id, "err", err)
	}
	s.index.Remove(t.id)
	s.count--
	s.log.Debug("task freed", "task", t.id, "name", t.name, "live", s.count)
	_ = s.tasks.Free(t)
}

// unlink takes t out of its chain and splices its secondary chain into its place.
func (s *Scheduler) unlink(t *Task) {
	first, last := t.child, t.child
	for c := t.child; c != nil; c = c.next {
		c.parent = t.parent
		last = c
	}

	head, tail := t.next, t.prev
	if first != nil {
		first.prev = t.prev
		last.next = t.next
		head, tail = first, last
	}
	if t.prev != nil {
		t.prev.next = head
	} else {
		t.parent.child = head
	}
	if t.next != nil {
		t.next.prev = tail
	}

	t.prev, t.next, t.parent, t.child = nil, nil, nil, nil
	t.returnTo = nil
}

// dropAll reports every live task as freed ahead of a bulk reset.
func (s *Scheduler) dropAll() {
	if s.tasks == nil {
		return
	}
	live := 0
	s.tasks.Each(func(t *Task) bool {
		s.emit(StatusFree, t)
		live++
		return true
	})
	if live != s.count {
		s.log.Warn("live task count out of step", "arena", live, "registry", s.count)
	}
}

// FreeAll drops every task at once. Meant for subsystem teardown.
func (s *Scheduler) FreeAll() {
	s.dropAll()
	if s.tasks != nil {
		s.tasks.Clear()
		s.stacks.Clear()
	}
	s.index.Clear()
	s.count = 0
	s.resetRoot()
	s.log.Debug("all tasks freed")
}

// Shutdown drops every task and releases the arenas. A later create or push
// builds them again.
func (s *Scheduler) Shutdown() {
	s.dropAll()
	if s.tasks != nil {
		s.tasks.Destroy()
		s.stacks.Destroy()
	}
	s.tasks = nil
	s.stacks = nil
	s.index.Clear()
	s.count = 0
	s.resetRoot()
	s.log.Debug("scheduler shut down")
}

// Count returns the number of live tasks.
func (s *Scheduler) Count() int { return s.count }

// Lookup returns the live task with the given id.
func (s *Scheduler) Lookup(id TaskID) (*Task, bool) {
	v, ok := s.index.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Task), true
}

// Tasks returns the live tasks ordered by id.
func (s *Scheduler) Tasks() []*Task {
	out := make([]*Task, 0, s.index.Size())
	it := s.index.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Task))
	}
	return out
}

// Root returns the main-chain sentinel. Its children are tasks created while no task ran.
func (s *Scheduler) Root() *Task { return &s.root }
