// Package batch runs independent tasks one at a time with a fixed pause
// between them. Running sequentially keeps a single automated session
// against the target at any moment.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"browsekit/browsekit/utils/apperrors"
)

// DefaultDelay is the pause inserted after every item but the last.
const DefaultDelay = 2000 * time.Millisecond

// Clock abstracts time for the sequencer.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Sequencer holds the pacing policy. The zero value uses DefaultDelay and RealClock.
type Sequencer struct {
	Delay time.Duration
	Clock Clock
}

func (s Sequencer) delay() time.Duration {
	if s.Delay <= 0 {
		return DefaultDelay
	}
	return s.Delay
}

func (s Sequencer) clock() Clock {
	if s.Clock == nil {
		return RealClock
	}
	return s.Clock
}

// Task is one unit of a batch.
type Task[T any] struct {
	Key string
	Run func(ctx context.Context) (T, error)
}

// Item is the outcome of one task; Err is nil on success.
type Item[T any] struct {
	Index      int
	Key        string
	Value      T
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (i Item[T]) OK() bool { return i.Err == nil }

// Report is index-aligned with the tasks that produced it.
type Report[T any] struct {
	Items     []Item[T]
	Total     int
	Succeeded int
	Failed    int
}

// Run executes tasks in order. A failing task never stops the ones after it.
// Once ctx is done the remaining tasks are not started and are reported as
// execution failures, so the report always has len(tasks) items.
// onItem, when non-nil, is called after each item completes.
func Run[T any](ctx context.Context, seq Sequencer, tasks []Task[T], onItem func(Item[T])) Report[T] {
	clock := seq.clock()
	report := Report[T]{
		Items: make([]Item[T], len(tasks)),
		Total: len(tasks),
	}

	for i, task := range tasks {
		item := Item[T]{Index: i, Key: task.Key, StartedAt: clock.Now()}
		if err := ctx.Err(); err != nil {
			item.Err = cancelled(err)
		} else {
			item.Value, item.Err = runTask(ctx, task)
		}
		item.FinishedAt = clock.Now()

		report.Items[i] = item
		if item.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
		if onItem != nil {
			onItem(item)
		}

		if i < len(tasks)-1 && ctx.Err() == nil {
			// A cancelled sleep leaves ctx done; the next iteration reports it.
			_ = clock.Sleep(ctx, seq.delay())
		}
	}
	return report
}

func runTask[T any](ctx context.Context, task Task[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch task %q panicked: %v", task.Key, r)
		}
	}()
	return task.Run(ctx)
}

func cancelled(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	return &apperrors.ExecutionError{Op: "batch item", Err: err}
}
