package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jeditask/internal/job"
	"jeditask/internal/sched"
)

type runOptions struct {
	Config   string
	Frames   int
	CSV      string
	Verbose  bool
	Realtime bool
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jeditask",
		Short:         "Cooperative frame-sliced task scheduler",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(newRunCommand())
	return cmd
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo behaviors for a number of frames",
		Long: `Run builds a scheduler from the config file, pushes a handful of demo
behaviors (a patrol, a door sequence, a mailbox and the frame-break host task)
and drives one frame per tick.

Example:
  jeditask run --frames 200
  jeditask run --config config.yml --csv events.csv --realtime -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "YAML config file")
	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", 100, "number of frames to run")
	cmd.Flags().StringVar(&opts.CSV, "csv", "", "write scheduler events to this CSV file")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print every scheduler event")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "pace ticks with the wall clock (tick_ms)")
	return cmd
}

func run(ctx context.Context, opts *runOptions, out io.Writer) error {
	cfg, err := sched.LoadFile(opts.Config)
	if err != nil {
		return err
	}
	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s := sched.New(cfg, sched.WithLogger(logger), sched.WithClock(sched.NewTickClock(1)))
	defer s.Shutdown()

	if opts.CSV != "" {
		if err := s.EnableCSVLogging(opts.CSV); err != nil {
			return fmt.Errorf("enable csv log: %w", err)
		}
		defer s.Close()
	}
	if opts.Verbose {
		s.Observe(func(ev sched.StatusEvent) {
			fmt.Fprintln(out, sched.FormatEvent(ev))
		})
	}

	frames := 0
	setupDemo(s, out, &frames)

	clock := s.Clock()
	if opts.Realtime {
		clock.Start(time.Duration(cfg.TickMS) * time.Millisecond)
		defer clock.Stop()
	}
	for i := 0; i < opts.Frames; i++ {
		if opts.Realtime {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.Ch:
			}
		}
		clock.Advance(1)
		s.RunFrame()
	}

	fmt.Fprintf(out, "ran %d frames to tick %d, %d tasks live\n", frames, s.Now(), s.Count())
	return nil
}

// setupDemo pushes the demo behaviors. The frame-break task goes last so every
// other due task runs before it in each frame.
func setupDemo(s *sched.Scheduler, out io.Writer, frames *int) {
	mailbox := s.PushTask("mailbox", job.Waiter(func(s *sched.Scheduler, id int) {
		fmt.Fprintf(out, "tick %05d  mailbox got message %d\n", s.Now(), id)
	}), false)
	mailbox.SetNextTick(sched.Sleep)

	s.PushTask("patrol", job.Every(10, 5, func(s *sched.Scheduler, n int) {
		fmt.Fprintf(out, "tick %05d  patrol step %d\n", s.Now(), n)
		s.RunSynchronously(mailbox, n+1)
	}), false)

	s.PushTask("door", job.Sequence(
		job.Do(func(s *sched.Scheduler) { fmt.Fprintf(out, "tick %05d  door opening\n", s.Now()) }),
		job.Sleep(20),
		job.Do(func(s *sched.Scheduler) { fmt.Fprintf(out, "tick %05d  door closed\n", s.Now()) }),
	), false)

	s.PushTask("frame", job.FrameLoop(func(s *sched.Scheduler) {
		*frames++
	}), true)
}
