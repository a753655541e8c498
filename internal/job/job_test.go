package job

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeditask/internal/sched"
)

func newScheduler(t *testing.T) *sched.Scheduler {
	t.Helper()
	return sched.New(sched.DefaultConfig(), sched.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// runTicks runs one frame per tick from the current tick up to and including last.
func runTicks(s *sched.Scheduler, last sched.Tick) {
	for s.Now() <= last {
		s.RunFrame()
		s.Clock().Advance(1)
	}
}

func TestSleep_EndsTaskAfterDelay(t *testing.T) {
	s := newScheduler(t)
	task := s.PushTask("nap", Sleep(3), false)
	id := task.ID()

	runTicks(s, 2)
	_, ok := s.Lookup(id)
	assert.True(t, ok, "still sleeping at tick 2")

	runTicks(s, 3)
	_, ok = s.Lookup(id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Count())
}

func TestEvery_RunsCountTimes(t *testing.T) {
	s := newScheduler(t)
	var calls []string
	s.PushTask("blink", Every(2, 3, func(s *sched.Scheduler, n int) {
		calls = append(calls, fmt.Sprintf("%d@%d", n, s.Now()))
	}), false)

	runTicks(s, 10)
	assert.Equal(t, []string{"0@0", "1@2", "2@4"}, calls)
	assert.Equal(t, 0, s.Count())
}

func TestEvery_ZeroCountRepeatsForever(t *testing.T) {
	s := newScheduler(t)
	calls := 0
	s.PushTask("hum", Every(1, 0, func(*sched.Scheduler, int) { calls++ }), false)

	runTicks(s, 4)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 1, s.Count())
}

func TestSequence_StepsWaitForSuspendedStep(t *testing.T) {
	s := newScheduler(t)
	var log []string
	mark := func(name string) sched.TaskFunc {
		return Do(func(s *sched.Scheduler) {
			log = append(log, fmt.Sprintf("%s@%d", name, s.Now()))
		})
	}
	s.PushTask("door", Sequence(mark("open"), Sleep(2), mark("close")), false)

	runTicks(s, 1)
	assert.Equal(t, []string{"open@0"}, log)

	runTicks(s, 5)
	assert.Equal(t, []string{"open@0", "close@2"}, log)
	assert.Equal(t, 0, s.Count())
}

func TestSequence_Nested(t *testing.T) {
	s := newScheduler(t)
	var log []string
	say := func(word string) sched.TaskFunc {
		return Do(func(*sched.Scheduler) { log = append(log, word) })
	}
	s.PushTask("nested", Sequence(
		say("a"),
		Sequence(say("b"), Sleep(1), say("c")),
		say("d"),
	), false)

	runTicks(s, 3)
	assert.Equal(t, []string{"a", "b", "c", "d"}, log)
	assert.Equal(t, 0, s.Count())
}

func TestWaiter_DrivenSynchronously(t *testing.T) {
	s := newScheduler(t)
	var got []int
	w := s.PushTask("mailbox", Waiter(func(s *sched.Scheduler, id int) {
		got = append(got, id)
	}), false)
	w.SetNextTick(sched.Sleep)

	assert.Equal(t, sched.Suspended, s.RunSynchronously(w, 5))
	runTicks(s, 3)
	assert.Equal(t, sched.Suspended, s.RunSynchronously(w, 0))
	assert.Equal(t, sched.Suspended, s.RunSynchronously(w, 8))
	assert.Equal(t, []int{5, 8}, got)
	assert.True(t, w.Sleeping())

	assert.Equal(t, sched.Completed, s.RunSynchronously(w, -1))
	assert.Equal(t, 0, s.Count())
}

func TestWaiter_FromAnotherTask(t *testing.T) {
	s := newScheduler(t)
	var got []int
	w := s.PushTask("mailbox", Waiter(func(s *sched.Scheduler, id int) {
		got = append(got, id)
	}), false)
	w.SetNextTick(sched.Sleep)
	s.PushTask("sender", Every(1, 3, func(s *sched.Scheduler, n int) {
		require.Equal(t, sched.Suspended, s.RunSynchronously(w, 10+n))
		assert.Equal(t, "sender", s.Current().Name())
	}), false)

	runTicks(s, 5)
	assert.Equal(t, []int{10, 11, 12}, got)
	assert.Equal(t, 1, s.Count())
}

func TestFrameLoop_RunsLastEveryFrame(t *testing.T) {
	s := newScheduler(t)
	var log []string
	s.PushTask("ticker", Every(1, 0, func(*sched.Scheduler, int) { log = append(log, "tick") }), false)
	s.PushTask("frame", FrameLoop(func(*sched.Scheduler) { log = append(log, "frame") }), true)

	for i := 0; i < 3; i++ {
		s.Clock().Advance(1)
		s.RunFrame()
	}
	assert.Equal(t, []string{"tick", "frame", "tick", "frame", "tick", "frame"}, log)
}
