package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// task is one long-running loop owned by the App.
type task struct {
	name string
	run  func(ctx context.Context) error
}

// taskError records which task ended the race.
type taskError struct {
	Task string
	Err  error
}

func (e *taskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Task, e.Err)
}

func (e *taskError) Unwrap() error {
	return e.Err
}

// race runs every task on a shared context. The first task to return, with
// or without an error, cancels the others; race waits for all of them and
// returns that first result. A nil first result means the process ends
// cleanly.
func race(ctx context.Context, logger *slog.Logger, tasks ...task) error {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once  sync.Once
		first error
		g     errgroup.Group
	)
	for _, t := range tasks {
		g.Go(func() error {
			err := t.run(ctx)
			once.Do(func() {
				logger.InfoContext(ctx, "task finished first, stopping the rest",
					slog.String("task", t.name),
					slog.Any("error", err),
				)
				if err != nil {
					first = &taskError{Task: t.name, Err: err}
				}
				cancel()
			})
			return nil
		})
	}
	_ = g.Wait()
	return first
}
