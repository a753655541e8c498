package job

import "jeditask/internal/sched"

// Every calls fn every interval ticks, count times, then returns. A count of zero
// or less repeats forever. n counts calls from zero.
func Every(interval sched.Tick, count int, fn func(s *sched.Scheduler, n int)) sched.TaskFunc {
	return func(s *sched.Scheduler, id int) {
		s.Begin()
		n := sched.Local[int](s)
		if count > 0 && *n >= count {
			s.Return()
			return
		}
		fn(s, *n)
		*n++
		s.Yield(interval, 1)
	}
}

// Do wraps fn as a step that runs once and returns without suspending.
func Do(fn func(s *sched.Scheduler)) sched.TaskFunc {
	return func(s *sched.Scheduler, id int) {
		s.Begin()
		fn(s)
		s.Return()
	}
}

// Sequence runs steps one after another as nested calls. A step that yields
// suspends the whole sequence; it carries on with the next step once that step
// returns.
func Sequence(steps ...sched.TaskFunc) sched.TaskFunc {
	return func(s *sched.Scheduler, id int) {
		s.Begin()
		next := sched.Local[int](s)
		for *next < len(steps) {
			step := steps[*next]
			*next++
			if s.Call(step, id, *next) {
				return
			}
		}
		s.Return()
	}
}

// FrameLoop is the frame-break task of a host loop. It calls frame once per frame,
// after every other due task has had its turn, and stays due so the next frame
// reaches it again.
func FrameLoop(frame func(s *sched.Scheduler)) sched.TaskFunc {
	return func(s *sched.Scheduler, id int) {
		s.Begin()
		if frame != nil {
			frame(s)
		}
		s.Yield(0, 1)
	}
}
