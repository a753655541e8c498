package job

import "jeditask/internal/sched"

// Sleep returns a task function that waits the given number of ticks and then
// returns. As a root function it ends its task; as a Sequence step it delays the
// rest of the sequence.
func Sleep(ticks sched.Tick) sched.TaskFunc {
	return func(s *sched.Scheduler, id int) {
		s.Begin()
		switch s.IP() {
		case 0:
			s.Yield(ticks, 1)
			return
		}
		s.Return()
	}
}

// Waiter sleeps until someone runs it. Each non-zero dispatch id is handed to
// handle; a negative id ends the task. Waiters are meant to be driven with
// RunSynchronously, which always enters them from the top.
func Waiter(handle func(s *sched.Scheduler, id int)) sched.TaskFunc {
	return func(s *sched.Scheduler, id int) {
		s.Begin()
		if id < 0 {
			s.Return()
			return
		}
		if id != 0 && handle != nil {
			handle(s, id)
		}
		s.Yield(sched.Sleep, 1)
	}
}
