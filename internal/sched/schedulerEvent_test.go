package sched

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// traceLine renders an event without its wall-clock time so traces are stable.
func traceLine(ev StatusEvent) string {
	next := "sleep"
	if ev.NextTick != Sleep {
		next = strconv.FormatInt(int64(ev.NextTick), 10)
	}
	return fmt.Sprintf("tick=%d %s %s level=%d next=%s\n", ev.Tick, ev.Kind, ev.Name, ev.Level, next)
}

func traceFrames(s *Scheduler, buf *bytes.Buffer, frames int) {
	for i := 1; i <= frames; i++ {
		fmt.Fprintf(buf, "frame %d tick %d\n", i, s.Now())
		s.RunFrame()
		s.Clock().Advance(1)
	}
}

func TestGoldenTrace_HierarchyDrain(t *testing.T) {
	s := newTestScheduler(t, Config{})
	var buf bytes.Buffer
	s.Observe(func(ev StatusEvent) { buf.WriteString(traceLine(ev)) })

	r := &recorder{}
	grandchild := spawner(r, "g", nil)
	child := spawner(r, "c1", func(s *Scheduler) { s.CreateTask("g", grandchild) })
	s.PushTask("p", spawner(r, "p", func(s *Scheduler) { s.CreateTask("c1", child) }), false)
	s.PushTask("q", spawner(r, "q", nil), false)
	traceFrames(s, &buf, 3)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "hierarchy_drain", buf.Bytes())
}

func TestGoldenTrace_DelayedCall(t *testing.T) {
	s := newTestScheduler(t, Config{})
	var buf bytes.Buffer
	s.Observe(func(ev StatusEvent) { buf.WriteString(traceLine(ev)) })

	callee := func(s *Scheduler, id int) {
		s.Begin()
		if s.IP() == 0 {
			s.Yield(2, 1)
			return
		}
		s.Return()
	}
	s.PushTask("caller", func(s *Scheduler, id int) {
		s.Begin()
		switch s.IP() {
		case 0:
			if s.Call(callee, 0, 1) {
				return
			}
			fallthrough
		case 1:
			s.Return()
		}
	}, false)
	traceFrames(s, &buf, 3)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "delayed_call", buf.Bytes())
}

func TestObserve_FrameBreakEvents(t *testing.T) {
	s := newTestScheduler(t, Config{})
	var events []StatusEvent
	s.Observe(func(ev StatusEvent) { events = append(events, ev) })

	s.PushTask("host", func(s *Scheduler, id int) {
		s.Begin()
		s.Call(func(s *Scheduler, id int) {
			s.Begin()
			s.Return()
		}, 0, 1)
		s.Yield(1, 1)
	}, true)
	s.RunFrame()

	var kinds []StatusKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
		assert.Equal(t, "host", ev.Name)
		assert.Equal(t, TaskID(1), ev.TaskID)
		assert.False(t, ev.Time.IsZero())
	}
	assert.Equal(t, []StatusKind{StatusPush, StatusDispatch, StatusCall, StatusYield, StatusFrameBreak}, kinds)
	require.Len(t, events, 5)
	assert.Equal(t, 0, events[2].Level)
	assert.Equal(t, Tick(1), events[3].NextTick)
}

func TestStatusKindString(t *testing.T) {
	assert.Equal(t, "Dispatch", StatusDispatch.String())
	assert.Equal(t, "FrameBreak", StatusFrameBreak.String())
	assert.Equal(t, "Unknown", StatusKind(99).String())
}

func TestFormatEvent(t *testing.T) {
	ev := StatusEvent{
		Time:     time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC),
		Tick:     5,
		Kind:     StatusDispatch,
		TaskID:   3,
		Name:     "patrol",
		Level:    1,
		NextTick: Sleep,
	}
	line := FormatEvent(ev)
	assert.Contains(t, line, "Mar 09 14:05:06.000")
	assert.Contains(t, line, "Tick: 0000005")
	assert.Contains(t, line, "[  Dispatch  ]")
	assert.Contains(t, line, "Task: 0003 patrol")
	assert.Contains(t, line, "level= 1")
	assert.Contains(t, line, "next=sleep")

	ev.NextTick = 12
	assert.Contains(t, FormatEvent(ev), "next=0000012")
}

func TestEnableCSVLogging(t *testing.T) {
	s := newTestScheduler(t, Config{})
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, s.EnableCSVLogging(path))

	s.PushTask("sleeper", idle, false)
	s.RunFrame()
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"timestamp", "scheduler", "tick", "event", "task_id", "name", "level", "next_tick"}, rows[0])
	assert.Equal(t, "Push", rows[1][3])
	assert.Equal(t, "Dispatch", rows[2][3])
	assert.Equal(t, "Yield", rows[3][3])
	assert.Equal(t, s.ID().String(), rows[1][1])
	assert.Equal(t, "sleeper", rows[3][5])
	assert.Equal(t, "-1", rows[3][6])
	assert.Equal(t, "sleep", rows[3][7])
	_, err = time.Parse(time.RFC3339Nano, rows[1][0])
	assert.NoError(t, err)

	assert.NotPanics(t, func() { s.PushTask("late", idle, false) }, "events after Close are dropped")
	assert.NoError(t, s.Close())
}

func TestEnableCSVLogging_BadPath(t *testing.T) {
	s := newTestScheduler(t, Config{})
	err := s.EnableCSVLogging(filepath.Join(t.TempDir(), "missing", "events.csv"))
	assert.Error(t, err)
}

func TestObserve_IdleFrames(t *testing.T) {
	s := newTestScheduler(t, Config{})
	var events []StatusEvent
	s.Observe(func(ev StatusEvent) { events = append(events, ev) })

	s.RunFrame()
	require.Len(t, events, 1)
	assert.Equal(t, StatusIdle, events[0].Kind)
	assert.Equal(t, TaskID(0), events[0].TaskID)

	events = nil
	s.PushTask("nap", idle, false)
	s.RunFrame()
	s.RunFrame()

	var kinds []StatusKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []StatusKind{StatusPush, StatusDispatch, StatusYield, StatusIdle}, kinds)
	assert.Equal(t, "Idle", StatusIdle.String())
}
