package sched

import (
	"io"
	"log/slog"
	"testing"
)

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	return New(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// recorder collects the order in which task bodies ran.
type recorder struct{ log []string }

func (r *recorder) add(s string) { r.log = append(r.log, s) }

func (r *recorder) take() []string {
	out := r.log
	r.log = nil
	return out
}

// stepper logs name each time it runs and yields delay, steps times; the run
// after that ends the task.
func stepper(r *recorder, name string, delay Tick, steps int) TaskFunc {
	return func(s *Scheduler, id int) {
		s.Begin()
		n := Local[int](s)
		if *n >= steps {
			s.Return()
			return
		}
		r.add(name)
		*n++
		s.Yield(delay, 1)
	}
}

// spawner runs spawn on its first activation, then logs name and yields one tick, forever.
func spawner(r *recorder, name string, spawn func(s *Scheduler)) TaskFunc {
	return func(s *Scheduler, id int) {
		s.Begin()
		switch s.IP() {
		case 0:
			if spawn != nil {
				spawn(s)
			}
			fallthrough
		case 1:
			r.add(name)
			s.Yield(1, 1)
		}
	}
}

func idle(s *Scheduler, id int) {
	s.Begin()
	s.Yield(Sleep, 1)
}

// walkOrder lists task names in scheduling order, starting after the root.
func walkOrder(s *Scheduler) []string {
	var out []string
	for t := s.successor(&s.root); t != &s.root; t = s.successor(t) {
		out = append(out, t.Name())
	}
	return out
}

// fatalOf runs f and returns the *FatalError it panicked with, if any.
func fatalOf(f func()) (fe *FatalError) {
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			if fe, ok = r.(*FatalError); !ok {
				panic(r)
			}
		}
	}()
	f()
	return nil
}
