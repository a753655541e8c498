// internal/sched/schedulerEvent.go

package sched

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusCreate
	StatusPush
	StatusDispatch
	StatusYield
	StatusCall
	StatusFinish
	StatusFree
	StatusFrameBreak
)

// StatusEvent is emitted on every task lifecycle and control transfer
type StatusEvent struct {
	Time     time.Time
	Tick     Tick
	Kind     StatusKind
	TaskID   TaskID
	Name     string
	Level    int
	NextTick Tick
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusCreate:
		return "Create"
	case StatusPush:
		return "Push"
	case StatusDispatch:
		return "Dispatch"
	case StatusYield:
		return "Yield"
	case StatusCall:
		return "Call"
	case StatusFinish:
		return "Finish"
	case StatusFree:
		return "Free"
	case StatusFrameBreak:
		return "FrameBreak"
	default:
		return "Unknown"
	}
}

// Observe registers fn to receive every event. Observers run synchronously on the
// scheduler's thread and must not call back into it.
func (s *Scheduler) Observe(fn func(StatusEvent)) {
	s.observers = append(s.observers, fn)
}

func (s *Scheduler) emit(kind StatusKind, t *Task) {
	if len(s.observers) == 0 {
		return
	}
	ev := StatusEvent{
		Time:  time.Now(),
		Tick:  s.Now(),
		Kind:  kind,
		Level: initLevel,
	}
	if t != nil {
		ev.TaskID = t.id
		ev.Name = t.name
		ev.Level = t.ctx.level
		ev.NextTick = t.nextTick
	}
	for _, fn := range s.observers {
		fn(ev)
	}
}

// FormatEvent renders an event as one human readable line.
func FormatEvent(ev StatusEvent) string {
	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		spaces := int(float64(width-len(str)) / 2)
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
	}

	next := "sleep"
	if ev.NextTick != Sleep {
		next = fmt.Sprintf("%07d", ev.NextTick)
	}
	return fmt.Sprintf("%s = Tick: %07d [%s] => Task: %04d %-12s level=%2d next=%s",
		ev.Time.Format("Jan 02 15:04:05.000"),
		ev.Tick,
		center(ev.Kind.String(), 12),
		ev.TaskID,
		ev.Name,
		ev.Level,
		next,
	)
}

// EnableCSVLogging opens the given file path and writes every event to it as CSV.
// Close flushes and closes the file.
func (s *Scheduler) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"timestamp", "scheduler", "tick", "event", "task_id", "name", "level", "next_tick"}); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	s.csvFile = f
	s.csvWriter = w

	id := s.id.String()
	s.Observe(func(ev StatusEvent) {
		if s.csvWriter != w {
			return // closed
		}
		next := "sleep"
		if ev.NextTick != Sleep {
			next = strconv.FormatInt(int64(ev.NextTick), 10)
		}
		rec := []string{
			ev.Time.Format(time.RFC3339Nano),
			id,
			strconv.FormatInt(int64(ev.Tick), 10),
			ev.Kind.String(),
			strconv.FormatUint(uint64(ev.TaskID), 10),
			ev.Name,
			strconv.Itoa(ev.Level),
			next,
		}
		if err := w.Write(rec); err != nil {
			s.log.Warn("csv event log write failed", "err", err)
		}
	})
	return nil
}

// Close flushes and closes the CSV event log, if one is open.
func (s *Scheduler) Close() error {
	if s.csvFile == nil {
		return nil
	}
	s.csvWriter.Flush()
	err := s.csvWriter.Error()
	if cerr := s.csvFile.Close(); err == nil {
		err = cerr
	}
	s.csvFile = nil
	s.csvWriter = nil
	return err
}
